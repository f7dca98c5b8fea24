package commands

import (
	"github.com/spf13/cobra"

	"github.com/agentmon/agentmon/cmd/agentmon/handlers"
)

// Gather returns the command that runs the external diagnostics-gather
// script.
//
// Optional flags:
//
//	--config, -c: Path to the agentmon configuration file (default: agentmon.yaml)
func Gather() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gather",
		Short: "Run the configured diagnostics-gather script",
		Long: `Invoke the operator-configured gather script and report the
archive it produced. The script runs as one blocking process with a
multi-minute timeout and is not retried.

Examples:
  agentmon gather`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Gather(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentmon.yaml", "Path to configuration file")

	return cmd
}
