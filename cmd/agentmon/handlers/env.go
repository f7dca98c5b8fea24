// Package handlers implements the command execution logic for the CLI.
//
// Handlers receive parsed arguments from the commands package, assemble the
// monitoring components, and run them. They contain no flag parsing.
package handlers

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/agentmon/agentmon/internal/auth"
	"github.com/agentmon/agentmon/internal/config"
	"github.com/agentmon/agentmon/internal/diag"
	"github.com/agentmon/agentmon/internal/installapi"
	"github.com/agentmon/agentmon/internal/kube"
	"github.com/agentmon/agentmon/internal/monitor"
	"github.com/agentmon/agentmon/internal/sshexec"
)

// env bundles the long-lived dependencies the handlers share.
type env struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	manifest *config.Manifest
	install  *installapi.Client
	log      logr.Logger
}

// loadEnv loads configuration, the optional manifest, and builds the
// orchestration API client. A missing or broken manifest is reported and
// tolerated: it only disables the features that depend on it.
func loadEnv(configPath string, verbose bool) (*env, error) {
	log := newLogger(verbose)

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	timeouts := config.LoadTimeouts()

	var manifest *config.Manifest
	if cfg.ManifestFile != "" {
		manifest, err = config.LoadManifest(cfg.ManifestFile)
		if err != nil {
			log.Info("manifest unavailable, node-count handover and diagnostics targeting disabled",
				"path", cfg.ManifestFile, "error", err.Error())
			manifest = nil
		}
	}

	tokens := auth.NewTokenSource(cfg.StateFile)
	install := installapi.NewClient(cfg.InstallAPIURL, tokens, timeouts.InstallAPI, log)

	return &env{
		cfg:      cfg,
		timeouts: timeouts,
		manifest: manifest,
		install:  install,
		log:      log,
	}, nil
}

// newLogger builds a line-oriented logger writing to stderr so the status
// view on stdout stays parseable.
func newLogger(verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity, LogTimestamp: true})
}

// clusterClient builds the target-cluster client once its kubeconfig exists.
func (e *env) clusterClient() (*kube.Client, error) {
	if e.cfg.Kubeconfig == "" {
		return nil, fmt.Errorf("no kubeconfig configured")
	}
	if _, err := os.Stat(e.cfg.Kubeconfig); err != nil {
		return nil, fmt.Errorf("kubeconfig not available yet: %w", err)
	}
	return kube.NewClient(e.cfg.Kubeconfig)
}

// clusterFactory adapts clusterClient for the monitor and, on first success,
// hands the client to the diagnostic scheduler as its cluster inspector.
func (e *env) clusterFactory(sched *diag.Scheduler) monitor.ClusterFactory {
	return func() (monitor.ClusterSource, error) {
		client, err := e.clusterClient()
		if err != nil {
			return nil, err
		}
		if sched != nil {
			sched.SetInspector(client)
		}
		return client, nil
	}
}

// newScheduler builds the SSH probe and its scheduler. Returns nil without
// error when SSH is not configured; per-node diagnostics are then disabled.
func (e *env) newScheduler() (*diag.Scheduler, error) {
	if e.cfg.SSH.KeyFile == "" {
		e.log.Info("no SSH key configured, node diagnostics disabled")
		return nil, nil
	}

	// #nosec G304
	key, err := os.ReadFile(e.cfg.SSH.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	runner, err := sshexec.NewClient(sshexec.Config{
		User:        e.cfg.SSH.User,
		Port:        e.cfg.SSH.Port,
		PrivateKey:  key,
		DialTimeout: e.timeouts.SSHDial,
	})
	if err != nil {
		return nil, err
	}

	probe := diag.NewProbe(runner, e.timeouts.Probe,
		e.cfg.Diagnostics.DiskUsagePercent, e.cfg.Diagnostics.MemoryUsagePercent, e.log)

	return diag.NewScheduler(probe, nil, e.cfg.Diagnostics.Workers, e.log), nil
}
