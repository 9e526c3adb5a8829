package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/memcomp/harness/internal/candidate"
	"github.com/memcomp/harness/internal/catalog"
	"github.com/memcomp/harness/internal/config"
	"github.com/memcomp/harness/internal/dockerctl"
	"github.com/memcomp/harness/internal/logging"
	"github.com/memcomp/harness/internal/preflight"
	"github.com/memcomp/harness/internal/proxyclient"
	"github.com/memcomp/harness/internal/runner"
	"github.com/spf13/cobra"
)

var (
	projectsPath   string
	candidatesPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all candidates against all configured projects",
	RunE:  runHarness,
}

func init() {
	runCmd.Flags().StringVar(&projectsPath, "projects", "projects.json", "path to the projects list")
	runCmd.Flags().StringVar(&candidatesPath, "candidates", "candidates.json", "path to the candidate list")
	rootCmd.AddCommand(runCmd)
}

func runHarness(cmd *cobra.Command, args []string) error {
	logging.Init(logging.Config{Level: logging.InfoLevel})
	log := logging.WithComponent("cmd.run")

	if err := preflight.RequireRoot(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := preflight.VerifyPaths(cfg); err != nil {
		return err
	}

	projects, err := loadProjects(projectsPath)
	if err != nil {
		return err
	}
	candidates, err := loadCandidates(candidatesPath)
	if err != nil {
		return err
	}

	instanceCount := 0
	for _, p := range projects {
		instanceCount += len(p)
	}
	log.Info().Int("candidates", len(candidates)).Int("instances", instanceCount).Msg("loaded run configuration")

	if err := preflight.CleanPriorResults(cfg, candidates); err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load benchmark catalog: %w", err)
	}

	docker, err := dockerctl.NewManager(dockerctl.Envelope{RootfsDevice: cfg.RootfsDevice})
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer docker.Close()

	proxy := proxyclient.New(cfg.ControllerBaseURL)

	if err := preflight.CheckProxyHealth(cmd.Context(), proxy, docker, cfg.LiteLLMBaseURLDocker); err != nil {
		return err
	}

	images, err := collectImages(cat, cfg.DockerImageBase, projects, candidates)
	if err != nil {
		return err
	}
	if err := preflight.EnsureImages(cmd.Context(), docker, images); err != nil {
		return err
	}

	log.Info().Msg("begin")
	driver := candidate.New(proxy)
	for _, c := range candidates {
		if err := driver.Run(projects, c); err != nil {
			log.Error().Err(err).Str("run_name", c.RunName).Msg("candidate run failed")
		}
	}
	log.Info().Msg("done")

	return nil
}

func loadProjects(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects file %s: %w", path, err)
	}
	var projects [][]string
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parse projects file %s: %w", path, err)
	}
	return projects, nil
}

func loadCandidates(path string) ([]runner.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates file %s: %w", path, err)
	}
	var candidates []runner.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("parse candidates file %s: %w", path, err)
	}
	return candidates, nil
}

func collectImages(cat *catalog.Catalog, imageBase string, projects [][]string, candidates []runner.Candidate) ([]string, error) {
	var images []string
	for _, c := range candidates {
		images = append(images, c.AgentDockerImage)
	}
	for _, project := range projects {
		for _, instanceID := range project {
			row, ok := cat.Lookup(instanceID)
			if !ok {
				return nil, fmt.Errorf("preflight: unknown instance id %q", instanceID)
			}
			images = append(images, catalog.ImageReference(imageBase, row))
		}
	}
	return images, nil
}
