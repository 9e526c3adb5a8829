// Package candidate implements the Candidate Driver: for each candidate,
// a proxy-user scope wrapping one Project Worker process per project.
package candidate

import (
	"fmt"
	"os/exec"

	"github.com/memcomp/harness/internal/logging"
	"github.com/memcomp/harness/internal/proxyclient"
	"github.com/memcomp/harness/internal/runner"
	"github.com/memcomp/harness/internal/worker"
)

// Driver runs candidates against a fixed set of projects. Each project
// is handed off to a re-exec'd worker process (internal/worker), which
// independently loads the benchmark catalog to hydrate its instances.
type Driver struct {
	proxy *proxyclient.Client
}

// New builds a Driver.
func New(proxy *proxyclient.Client) *Driver {
	return &Driver{proxy: proxy}
}

// Run evaluates cand against projects: creates the proxy user, spawns
// one project-worker process per project, joins them all, then deletes
// the proxy user regardless of worker outcome.
func (d *Driver) Run(projects [][]string, cand runner.Candidate) error {
	log := logging.WithRun(cand.RunName)

	if err := d.proxy.CreateUser(cand.RunName, cand.RunName, cand.LLMQuotaTotal); err != nil {
		return fmt.Errorf("create llm user %s: %w", cand.RunName, err)
	}
	defer func() {
		log.Info().Msg("cleanup llm user")
		if err := d.proxy.DeleteUser(cand.RunName); err != nil {
			log.Warn().Err(err).Msg("delete llm user failed")
		}
	}()

	cmds := make([]*exec.Cmd, 0, len(projects))
	for pidx, project := range projects {
		if len(project) == 0 {
			continue
		}
		cmd, err := worker.Spawn(worker.Job{
			InstanceIDs: project,
			ProjectIdx:  pidx,
			Candidate:   cand,
		})
		if err != nil {
			log.Error().Err(err).Int("project", pidx).Msg("failed to spawn project worker")
			continue
		}
		cmds = append(cmds, cmd)
	}

	for _, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			log.Warn().Err(err).Msg("project worker exited with error")
		}
	}

	return nil
}
