package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/agentmon/agentmon/internal/monitor"
)

// Diagnose handles the diagnose command: one manual diagnostic cycle.
func Diagnose(ctx context.Context, configPath string, verbose bool) error {
	e, err := loadEnv(configPath, verbose)
	if err != nil {
		return err
	}
	if e.manifest == nil {
		return fmt.Errorf("diagnostics need the node-inventory manifest to know which hosts to probe")
	}

	sched, err := e.newScheduler()
	if err != nil {
		return err
	}
	if sched == nil {
		return fmt.Errorf("diagnostics need ssh.keyFile to be configured")
	}

	// Cluster-level checks are best effort; before the handover the
	// kubeconfig simply does not exist yet.
	if client, err := e.clusterClient(); err == nil {
		sched.SetInspector(client)
	}

	mon := monitor.New(e.cfg, e.timeouts, e.manifest, e.install, nil, e.log)
	if !sched.RunCycle(ctx, mon.Targets()) {
		return fmt.Errorf("a diagnostic cycle is already running")
	}

	renderFindings(os.Stdout, sched.Findings())
	return nil
}
