// Package dockerctl wraps the Docker SDK container lifecycle calls the
// harness needs: create, start, log streaming, and the two-try
// stop-then-remove cleanup protocol every cell follows.
package dockerctl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/memcomp/harness/internal/logging"
)

// Manager wraps a Docker SDK client with the envelope and cleanup
// conventions this harness applies to every container it starts.
type Manager struct {
	cli      *client.Client
	Envelope Envelope
}

// NewManager connects to the local Docker daemon via the environment
// (DOCKER_HOST etc.), negotiating API version like the reference
// container manager does.
func NewManager(envelope Envelope) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("docker ping: %w", err)
	}
	return &Manager{cli: cli, Envelope: envelope}, nil
}

// Client exposes the underlying SDK client for callers (e.g. the
// network-attach and image-pull helpers) that need calls this wrapper
// doesn't itself cover.
func (m *Manager) Client() *client.Client { return m.cli }

// CreateSpec describes one container to create. Resources are always
// the fixed Envelope; callers supply only what's specific to the cell.
type CreateSpec struct {
	Name        string
	Image       string
	Entrypoint  []string
	Cmd         []string
	Env         []string
	NetworkMode string
	Binds       []string // "host:container[:mode]"
}

// Create starts nothing; it only calls ContainerCreate with the fixed
// envelope applied to the host config.
func (m *Manager) Create(ctx context.Context, spec CreateSpec) (string, error) {
	hostConfig := &container.HostConfig{
		Binds:         spec.Binds,
		NetworkMode:   container.NetworkMode(spec.NetworkMode),
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyDisabled},
	}
	m.Envelope.ApplyTo(hostConfig)

	env := append(append([]string{}, EnvDefaults()...), spec.Env...)

	resp, err := m.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Entrypoint: spec.Entrypoint,
			Cmd:        spec.Cmd,
			Env:        env,
		},
		hostConfig,
		nil, nil, spec.Name,
	)
	if err != nil {
		return "", fmt.Errorf("container create %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

// ConnectNetwork attaches an already-created container to an additional
// network (used for the dual infra/internet attachment sandbox cells
// need).
func (m *Manager) ConnectNetwork(ctx context.Context, containerID, network string) error {
	if err := m.cli.NetworkConnect(ctx, network, containerID, nil); err != nil {
		return fmt.Errorf("connect network %s: %w", network, err)
	}
	return nil
}

// Start starts a previously created container.
func (m *Manager) Start(ctx context.Context, containerID string) error {
	if err := m.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("container start: %w", err)
	}
	return nil
}

// IPOnNetwork reads back the container's IP address on a given network,
// after ContainerInspect, as the sandbox cell needs to compute its
// connection string.
func (m *Manager) IPOnNetwork(ctx context.Context, containerID, network string) (string, error) {
	info, err := m.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", fmt.Errorf("container inspect: %w", err)
	}
	net, ok := info.NetworkSettings.Networks[network]
	if !ok || net.IPAddress == "" {
		return "", fmt.Errorf("container %s has no address on network %s", containerID, network)
	}
	return net.IPAddress, nil
}

// Logs opens a streaming reader of the container's combined stdout and
// stderr with timestamps, matching the `logs(stream=True, timestamps=True,
// follow=True)` call the agent cell's log thread performs. Containers
// in this harness are never created with a TTY, so the Engine API
// multiplexes stdout/stderr behind an 8-byte frame header per chunk;
// the returned reader has already been demultiplexed with stdcopy and
// yields plain text.
func (m *Manager) Logs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	raw, err := m.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Follow:     true,
	})
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		_, copyErr := stdcopy.StdCopy(pw, pw, raw)
		raw.Close()
		pw.CloseWithError(copyErr)
	}()
	return pr, nil
}

// Wait blocks until the container exits, or ctx is done, returning the
// exit status code on normal completion.
func (m *Manager) Wait(ctx context.Context, containerID string) (int64, error) {
	statusCh, errCh := m.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("container wait: %w", err)
	case status := <-statusCh:
		return status.StatusCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// stopGrace is the grace period given to a container before it is
// force-killed, matching the reference implementation's cont.stop(timeout=3).
const stopGrace = 3 * time.Second

// Cleanup runs the two-try stop-then-remove protocol: stop with a grace
// period then force-remove; on failure, force-remove again; on further
// failure, log and swallow. It never returns an error.
func (m *Manager) Cleanup(ctx context.Context, containerID, label string) {
	log := logging.WithComponent("dockerctl")
	timeout := int(stopGrace.Seconds())

	err1 := m.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	err2 := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err1 == nil && err2 == nil {
		return
	}

	log.Warn().Str("container", label).Err(joinErr(err1, err2)).Msg("cleanup failed, retrying")
	if err := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		log.Warn().Str("container", label).Err(err).Msg("cleanup failed again, ignoring")
	}
}

func joinErr(errs ...error) error {
	var first error
	for _, e := range errs {
		if e != nil && first == nil {
			first = e
		}
	}
	return first
}

// Close releases the underlying Docker client connection.
func (m *Manager) Close() error {
	return m.cli.Close()
}
