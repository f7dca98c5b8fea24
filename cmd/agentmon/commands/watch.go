package commands

import (
	"github.com/spf13/cobra"

	"github.com/agentmon/agentmon/cmd/agentmon/handlers"
)

// Watch returns the command that follows the installation continuously.
//
// It polls the authoritative data source, prints a fresh status view whenever
// it changes, streams installation events, and runs periodic SSH diagnostics
// against the expected nodes.
//
// Optional flags:
//
//	--config, -c: Path to the agentmon configuration file (default: agentmon.yaml)
//	--verbose, -v: Enable debug logging
func Watch() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the installation until the cluster is up",
		Long: `Continuously watch an agent-based cluster installation.

The monitor starts against the installation-orchestration API on the
rendezvous host and switches to the target cluster's own API once the new
control plane answers for itself. Installation events are streamed as they
happen, and node diagnostics run over SSH on a fixed cadence.

Examples:
  # Watch with the default configuration file
  agentmon watch

  # Watch a specific installation
  agentmon watch --config /var/lib/agentmon/cluster-a.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Watch(cmd.Context(), configPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentmon.yaml", "Path to configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}
