package commands

import (
	"github.com/spf13/cobra"

	"github.com/agentmon/agentmon/cmd/agentmon/handlers"
)

// Status returns the command for a one-shot status read.
//
// Optional flags:
//
//	--config, -c: Path to the agentmon configuration file (default: agentmon.yaml)
//	--json: Output the snapshot in JSON format
func Status() *cobra.Command {
	var configPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current installation status once",
		Long: `Poll the authoritative data source a single time and print the
resulting status view.

Examples:
  # Human-readable status
  agentmon status

  # Status for scripting
  agentmon status --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), configPath, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentmon.yaml", "Path to configuration file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
