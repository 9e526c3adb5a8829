// Package agentcell implements the Agent Cell: the lifecycle of one
// candidate-agent container, including its streaming log capture.
package agentcell

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/memcomp/harness/internal/dockerctl"
	"github.com/memcomp/harness/internal/logging"
)

const infraNetwork = "infra"

// Config describes one agent container invocation.
type Config struct {
	Image         string
	ContainerName string
	InstancePath  string // host dir bound rw at /mnt/instance
	MemoryPath    string // host dir bound rw at /mnt/memory
	LLMBaseURL    string
	LLMAPIKey     string
	SSHConnStr    string
	LogPath       string // host file the streamed log is written to
	RunName       string
	Ident         string
	Verbose       int
}

// Cell is a running agent container with its log-streaming goroutine.
type Cell struct {
	mgr         *dockerctl.Manager
	containerID string
	cfg         Config
	logDone     chan struct{}
}

// Start creates and starts the agent container, then — after the
// mandatory 1-second settle delay — begins streaming its logs to
// cfg.LogPath. Attaching before the container has actually started can
// silently drop its initial output, so the delay is not optional.
func Start(ctx context.Context, mgr *dockerctl.Manager, cfg Config) (*Cell, error) {
	id, err := mgr.Create(ctx, dockerctl.CreateSpec{
		Name:        cfg.ContainerName,
		Image:       cfg.Image,
		Cmd: []string{
			"--instance-path", "/mnt/instance",
			"--memory-path", "/mnt/memory",
			"--llm-base-url", cfg.LLMBaseURL,
			"--llm-api-key", cfg.LLMAPIKey,
			"--env-ssh", cfg.SSHConnStr,
		},
		NetworkMode: infraNetwork,
		Binds: []string{
			cfg.InstancePath + ":/mnt/instance:rw",
			cfg.MemoryPath + ":/mnt/memory:rw",
		},
	})
	if err != nil {
		return nil, err
	}

	if err := mgr.Start(ctx, id); err != nil {
		mgr.Cleanup(ctx, id, cfg.ContainerName)
		return nil, err
	}

	c := &Cell{mgr: mgr, containerID: id, cfg: cfg, logDone: make(chan struct{})}

	time.Sleep(time.Second)
	go c.streamLogs(ctx)

	return c, nil
}

func (c *Cell) streamLogs(ctx context.Context) {
	defer close(c.logDone)

	log := logging.WithComponent("agentcell")

	rc, err := c.mgr.Logs(ctx, c.containerID)
	if err != nil {
		log.Error().Err(err).Str("container", c.cfg.ContainerName).Msg("failed to attach log stream")
		return
	}
	defer rc.Close()

	logf, err := os.Create(c.cfg.LogPath)
	if err != nil {
		log.Error().Err(err).Str("path", c.cfg.LogPath).Msg("failed to create agent log file")
		return
	}
	defer logf.Close()

	w := bufio.NewWriter(logf)
	defer w.Flush()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(w, line)
		w.Flush()

		if c.cfg.Verbose >= 2 {
			// docker timestamps each line as "<rfc3339nano> <content>";
			// strip the timestamp prefix the daemon already attached.
			_, content, found := strings.Cut(line, " ")
			if !found {
				content = line
			}
			fmt.Printf("%s | %s %s: > %s\n", time.Now().Format(time.RFC3339), c.cfg.RunName, c.cfg.Ident, content)
		}
	}
}

// Wait blocks until the container exits or ctx's deadline elapses.
func (c *Cell) Wait(ctx context.Context) (int64, error) {
	return c.mgr.Wait(ctx, c.containerID)
}

// Stop runs the two-try stop/remove cleanup protocol, then joins the log
// streaming goroutine so the log file is guaranteed flushed and closed.
func (c *Cell) Stop(ctx context.Context) {
	logging.WithComponent("agentcell").Info().Str("container", c.cfg.ContainerName).
		Str("image", c.cfg.Image).Msg("cleanup agent")
	c.mgr.Cleanup(ctx, c.containerID, c.cfg.ContainerName)
	<-c.logDone
}
