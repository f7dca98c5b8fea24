// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the agentmon CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentmon",
		Short: "Watch an unattended agent-based cluster installation",
	}

	cmd.AddCommand(Watch())
	cmd.AddCommand(Status())
	cmd.AddCommand(Diagnose())
	cmd.AddCommand(Gather())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
