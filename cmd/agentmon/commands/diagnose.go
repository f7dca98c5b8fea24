package commands

import (
	"github.com/spf13/cobra"

	"github.com/agentmon/agentmon/cmd/agentmon/handlers"
)

// Diagnose returns the command that runs one diagnostic cycle on demand.
//
// Optional flags:
//
//	--config, -c: Path to the agentmon configuration file (default: agentmon.yaml)
//	--verbose, -v: Enable debug logging
func Diagnose() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Probe all expected nodes over SSH once",
		Long: `Run a single diagnostic cycle: probe every node the manifest
expects over SSH, check the target cluster for pending certificate signing
requests and machine-config drift, and print the findings.

Examples:
  agentmon diagnose
  agentmon diagnose --config /var/lib/agentmon/cluster-a.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Diagnose(cmd.Context(), configPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentmon.yaml", "Path to configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}
