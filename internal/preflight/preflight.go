// Package preflight implements Preflight: the set of checks and
// cleanups that must pass before any candidate begins evaluation.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/memcomp/harness/internal/config"
	"github.com/memcomp/harness/internal/dockerctl"
	"github.com/memcomp/harness/internal/logging"
	"github.com/memcomp/harness/internal/proxyclient"
	"github.com/memcomp/harness/internal/runner"
)

// confirmWindow is how long Preflight waits, printing a warning, before
// deleting prior result trees — long enough for an operator watching
// the console to interrupt the run.
const confirmWindow = 10 * time.Second

// RequireRoot fails the run early if not running with the elevated
// privileges cleanup needs to chown/chmod container-written files.
func RequireRoot() error {
	if runtime.GOOS != "linux" {
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("preflight: must run as root (container output cleanup requires chown)")
	}
	return nil
}

// VerifyPaths ensures the sshbox scripts and trajectory directories
// exist and that the result/work roots are present, creating the
// latter two if missing.
func VerifyPaths(cfg config.Harness) error {
	for _, p := range []string{cfg.SSHBoxScriptPath, cfg.TrajPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("preflight: required path missing: %s: %w", p, err)
		}
	}
	if err := os.MkdirAll(cfg.ResultPath, 0o755); err != nil {
		return fmt.Errorf("preflight: create result path: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkPath, 0o755); err != nil {
		return fmt.Errorf("preflight: create work path: %w", err)
	}
	return nil
}

// CleanPriorResults lists any existing result tree for each candidate's
// run_name, prints a ten-second warning, then deletes them all.
func CleanPriorResults(cfg config.Harness, candidates []runner.Candidate) error {
	var toDelete []string
	for _, c := range candidates {
		p := cfg.ResultPath + "/" + c.RunName
		if _, err := os.Stat(p); err == nil {
			toDelete = append(toDelete, p)
		}
	}
	if len(toDelete) == 0 {
		return nil
	}

	log := logging.WithComponent("preflight")
	for _, p := range toDelete {
		log.Warn().Str("path", p).Msg("existing result tree will be deleted")
	}
	log.Warn().Int("count", len(toDelete)).Dur("in", confirmWindow).
		Msg("will cleanup existing results, Ctrl+C now to abort")
	time.Sleep(confirmWindow)

	for _, p := range toDelete {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("preflight: remove prior results %s: %w", p, err)
		}
	}
	return nil
}

// CheckProxyHealth verifies the Proxy Controller Service from the host,
// then verifies the upstream model proxy is reachable from inside the
// infra network using a throwaway curl container.
func CheckProxyHealth(ctx context.Context, proxy *proxyclient.Client, docker *dockerctl.Manager, liteLLMBaseURLDocker string) error {
	health, err := proxy.Health()
	if err != nil {
		return fmt.Errorf("preflight: controller health check failed: %w", err)
	}
	if !health.SupportsV1() {
		return fmt.Errorf("preflight: controller does not report v1 compatibility")
	}

	id, err := docker.Create(ctx, dockerctl.CreateSpec{
		Name:        "memcomp-preflight-curl",
		Image:       "curlimages/curl:8.6.0",
		Cmd:         []string{"-sS", "-m", "5", "-o", "/dev/null", "-w", "%{http_code}", liteLLMBaseURLDocker + "/health/liveliness"},
		NetworkMode: "infra",
	})
	if err != nil {
		return fmt.Errorf("preflight: create curl probe: %w", err)
	}
	defer docker.Cleanup(ctx, id, "memcomp-preflight-curl")

	if err := docker.Start(ctx, id); err != nil {
		return fmt.Errorf("preflight: start curl probe: %w", err)
	}
	if _, err := docker.Wait(ctx, id); err != nil {
		return fmt.Errorf("preflight: wait curl probe: %w", err)
	}

	rc, err := docker.Client().ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true})
	if err != nil {
		return fmt.Errorf("preflight: read curl probe logs: %w", err)
	}
	defer rc.Close()
	// The probe runs without a TTY, so its log stream is multiplexed and
	// must be demuxed before the status code can be compared.
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, io.Discard, rc); err != nil {
		return fmt.Errorf("preflight: read curl probe logs: %w", err)
	}
	if got := out.String(); got != "200" {
		return fmt.Errorf("preflight: model proxy liveliness check returned %q, want 200", got)
	}
	return nil
}

// EnsureImages pulls any image referenced by a candidate or instance
// that is not already present locally.
func EnsureImages(ctx context.Context, docker *dockerctl.Manager, images []string) error {
	log := logging.WithComponent("preflight")
	cli := docker.Client()

	seen := make(map[string]bool)
	for _, img := range images {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true

		if _, _, err := cli.ImageInspectWithRaw(ctx, img); err == nil {
			continue
		}

		log.Info().Str("image", img).Msg("pulling missing image")
		rc, err := cli.ImagePull(ctx, img, image.PullOptions{})
		if err != nil {
			return fmt.Errorf("preflight: pull image %s: %w", img, err)
		}
		_, _ = io.Copy(io.Discard, rc)
		rc.Close()
	}
	return nil
}
