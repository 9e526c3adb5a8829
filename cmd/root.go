package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harness",
	Short: "Evaluation harness for agentic code-fixing candidates",
	Long: `harness orchestrates candidate x project x instance execution cells:
a sandboxed target environment, a budget-scoped model-proxy credential,
a short-lived agent worker, and a logging pouch, torn down after each
instance with no orphaned resources.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
