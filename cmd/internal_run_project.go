package cmd

import (
	"fmt"
	"os"

	"github.com/memcomp/harness/internal/catalog"
	"github.com/memcomp/harness/internal/config"
	"github.com/memcomp/harness/internal/dockerctl"
	"github.com/memcomp/harness/internal/logging"
	"github.com/memcomp/harness/internal/proxyclient"
	"github.com/memcomp/harness/internal/runner"
	"github.com/memcomp/harness/internal/worker"
	"github.com/spf13/cobra"
)

// internalRunProjectCmd is the hidden entry point a re-exec'd project
// worker process is launched with (see internal/worker.Spawn). It is
// never invoked directly by an operator.
var internalRunProjectCmd = &cobra.Command{
	Use:    worker.InternalRunProjectSubcommand + " <state-file>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runInternalRunProject,
}

func init() {
	rootCmd.AddCommand(internalRunProjectCmd)
}

func runInternalRunProject(cmd *cobra.Command, args []string) error {
	logging.Init(logging.Config{Level: logging.InfoLevel})

	job, err := worker.LoadJob(args[0])
	if err != nil {
		return err
	}
	defer os.Remove(args[0])

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load benchmark catalog: %w", err)
	}

	instances, err := runner.HydrateProject(cat, job.InstanceIDs, job.ProjectIdx, cfg.DockerImageBase)
	if err != nil {
		return fmt.Errorf("hydrate project instances: %w", err)
	}

	docker, err := dockerctl.NewManager(dockerctl.Envelope{RootfsDevice: cfg.RootfsDevice})
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer docker.Close()

	proxy := proxyclient.New(cfg.ControllerBaseURL)

	r := runner.New(cfg, docker, proxy)
	r.RunProject(cmd.Context(), instances, job.Candidate)
	return nil
}
