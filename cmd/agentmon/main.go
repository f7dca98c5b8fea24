// Package main is the entry point for the agentmon CLI.
//
// agentmon watches an unattended agent-based cluster installation from the
// outside: it follows the install through the orchestration API on the
// rendezvous host, hands over to the target cluster's own API once the new
// control plane is self-hosting, and runs SSH diagnostics against the nodes
// in between.
//
// Commands: watch, status, diagnose, gather.
//
// For detailed usage information, run:
//
//	agentmon --help
package main

import (
	"fmt"
	"os"

	"github.com/agentmon/agentmon/cmd/agentmon/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
