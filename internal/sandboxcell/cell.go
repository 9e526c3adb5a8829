// Package sandboxcell implements the Sandbox Cell: the lifecycle of one
// target-environment container that an agent cell will connect to over
// SSH.
package sandboxcell

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/memcomp/harness/internal/dockerctl"
	"github.com/memcomp/harness/internal/logging"
)

const (
	infraNetwork    = "infra"
	internetNetwork = "internet"
)

// Config is everything a Sandbox Cell needs beyond the manager itself.
type Config struct {
	Image          string
	ContainerName  string
	ScriptsPath    string // host path mounted read-only at /mnt/sshbox
	PcapPath       string // host path mounted read-write at /mnt/pcap
}

// Cell is a running sandbox container. ConnStr is "root:<password>@<ip>"
// on the infra network, ready to be handed to the agent cell.
type Cell struct {
	mgr         *dockerctl.Manager
	containerID string
	name        string
	ConnStr     string
}

// Start creates, attaches, and starts the sandbox container, returning a
// handle whose Stop performs the standard two-try cleanup.
func Start(ctx context.Context, mgr *dockerctl.Manager, cfg Config) (*Cell, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, fmt.Errorf("generate sandbox password: %w", err)
	}

	id, err := mgr.Create(ctx, dockerctl.CreateSpec{
		Name:        cfg.ContainerName,
		Image:       cfg.Image,
		Entrypoint:  []string{"/mnt/sshbox/start.sh"},
		Cmd:         []string{password},
		NetworkMode: infraNetwork,
		Binds: []string{
			cfg.ScriptsPath + ":/mnt/sshbox:ro",
			cfg.PcapPath + ":/mnt/pcap:rw",
		},
	})
	if err != nil {
		return nil, err
	}

	if err := mgr.ConnectNetwork(ctx, id, internetNetwork); err != nil {
		mgr.Cleanup(ctx, id, cfg.ContainerName)
		return nil, err
	}

	if err := mgr.Start(ctx, id); err != nil {
		mgr.Cleanup(ctx, id, cfg.ContainerName)
		return nil, err
	}

	ip, err := mgr.IPOnNetwork(ctx, id, infraNetwork)
	if err != nil {
		mgr.Cleanup(ctx, id, cfg.ContainerName)
		return nil, err
	}

	return &Cell{
		mgr:         mgr,
		containerID: id,
		name:        cfg.ContainerName,
		ConnStr:     fmt.Sprintf("root:%s@%s", password, ip),
	}, nil
}

// Stop runs the two-try stop/remove cleanup protocol. It never returns
// an error; failures are logged.
func (c *Cell) Stop(ctx context.Context) {
	logging.WithComponent("sandboxcell").Info().Str("container", c.name).Msg("cleanup sshbox")
	c.mgr.Cleanup(ctx, c.containerID, c.name)
}

func randomPassword() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
