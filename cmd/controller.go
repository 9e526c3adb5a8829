package cmd

import (
	"github.com/memcomp/harness/internal/config"
	"github.com/memcomp/harness/internal/controller"
	"github.com/memcomp/harness/internal/logging"
	"github.com/spf13/cobra"
)

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run the Proxy Controller Service",
}

var controllerServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Proxy Controller Service's HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Config{Level: logging.InfoLevel})

		cfg := config.LoadController()
		svc := controller.New(controller.Config{
			UpstreamURL:    cfg.UpstreamURL,
			UpstreamKey:    cfg.UpstreamKey,
			GlobalBudget:   cfg.GlobalBudget,
			InstanceBudget: cfg.InstanceBudget,
			TrajPath:       cfg.TrajPath,
		})
		return svc.ListenAndServe(cfg.ListenAddr)
	},
}

func init() {
	controllerCmd.AddCommand(controllerServeCmd)
	rootCmd.AddCommand(controllerCmd)
}
