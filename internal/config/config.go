// Package config loads and validates the monitor configuration and the
// node-inventory manifest that describes the expected cluster hosts.
package config

import (
	"fmt"
	"time"
)

// Severity classifies a status or finding for display purposes.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityNeutral Severity = "neutral"
)

// Config holds the full monitor configuration.
type Config struct {
	// StateFile is the installer state blob holding the API auth token.
	StateFile string `yaml:"stateFile"`

	// InstallAPIURL is the base URL of the installation-orchestration API.
	InstallAPIURL string `yaml:"installAPIURL"`

	// Kubeconfig is the path to the target cluster's kubeconfig.
	Kubeconfig string `yaml:"kubeconfig"`

	// ManifestFile is the node-inventory manifest enumerating expected hosts.
	ManifestFile string `yaml:"manifestFile"`

	SSH         SSHConfig         `yaml:"ssh"`
	Mode        ModeConfig        `yaml:"mode"`
	Intervals   IntervalsConfig   `yaml:"intervals"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`

	// ControlPlaneOperators names the cluster operators whose in-progress
	// rollout is attributed to control-plane nodes.
	ControlPlaneOperators []string `yaml:"controlPlaneOperators"`

	// StatusSeverities maps orchestration-API status strings to display
	// severities. Unknown statuses render as neutral.
	StatusSeverities map[string]Severity `yaml:"statusSeverities"`

	// MetricsListen enables the Prometheus endpoint when non-empty,
	// e.g. ":9360".
	MetricsListen string `yaml:"metricsListen"`

	// GatherCommand is the external diagnostics-gather script. Empty
	// disables the gather command.
	GatherCommand string `yaml:"gatherCommand"`
}

// SSHConfig holds remote-shell settings for per-node diagnostics.
type SSHConfig struct {
	User    string `yaml:"user"`
	KeyFile string `yaml:"keyFile"`
	Port    int    `yaml:"port"`
}

// ModeConfig tunes the data-source state machine.
type ModeConfig struct {
	// SuccessThreshold is the number of prior successful orchestration-API
	// reads required before consecutive failures may trigger a handover.
	SuccessThreshold int `yaml:"successThreshold"`

	// FailureThreshold is the consecutive-failure streak that triggers the
	// missed-handover path.
	FailureThreshold int `yaml:"failureThreshold"`

	// HandoverMaxWait bounds how long a continuously reachable target
	// cluster may fall short of the expected node count before the
	// controller hands over anyway.
	HandoverMaxWait time.Duration `yaml:"handoverMaxWait"`
}

// IntervalsConfig holds the polling cadences.
type IntervalsConfig struct {
	Poll        time.Duration `yaml:"poll"`
	Events      time.Duration `yaml:"events"`
	Diagnostics time.Duration `yaml:"diagnostics"`
}

// DiagnosticsConfig tunes the per-node diagnostic probes.
type DiagnosticsConfig struct {
	// Workers bounds how many nodes are probed concurrently.
	Workers int `yaml:"workers"`

	// DiskUsagePercent is the filesystem-usage level above which (strictly
	// greater than) a warning finding is produced.
	DiskUsagePercent int `yaml:"diskUsagePercent"`

	// MemoryUsagePercent is the memory-usage warning level, strictly
	// greater than.
	MemoryUsagePercent int `yaml:"memoryUsagePercent"`
}

// Default thresholds and cadences. The event feed is polled faster than the
// main snapshot because events are latency-sensitive narrative.
const (
	defaultSuccessThreshold   = 5
	defaultFailureThreshold   = 3
	defaultHandoverMaxWait    = 20 * time.Minute
	defaultPollInterval       = 10 * time.Second
	defaultEventInterval      = 3 * time.Second
	defaultDiagnosticInterval = 2 * time.Minute
	defaultDiagnosticWorkers  = 6
	defaultDiskUsagePercent   = 85
	defaultMemoryUsagePercent = 90
	defaultSSHUser            = "core"
	defaultSSHPort            = 22
)

// DefaultControlPlaneOperators lists the operators that roll out on
// control-plane machines and are shown as per-node in-progress work.
func DefaultControlPlaneOperators() []string {
	return []string{
		"etcd",
		"kube-apiserver",
		"kube-controller-manager",
		"kube-scheduler",
		"machine-config",
	}
}

// DefaultStatusSeverities returns the built-in status classification table.
// It is data, not logic: a config file may override any entry.
func DefaultStatusSeverities() map[string]Severity {
	return map[string]Severity{
		"ready":                      SeveritySuccess,
		"installed":                  SeveritySuccess,
		"known":                      SeveritySuccess,
		"installing":                 SeverityInfo,
		"preparing-for-installation": SeverityInfo,
		"installing-in-progress":     SeverityInfo,
		"pending-for-input":          SeverityWarning,
		"insufficient":               SeverityError,
		"error":                      SeverityError,
	}
}

// SeverityFor classifies an orchestration-API status string.
func (c *Config) SeverityFor(status string) Severity {
	if s, ok := c.StatusSeverities[status]; ok {
		return s
	}
	return SeverityNeutral
}

// applyDefaults fills zero-valued fields after unmarshalling.
func (c *Config) applyDefaults() {
	if c.Mode.SuccessThreshold == 0 {
		c.Mode.SuccessThreshold = defaultSuccessThreshold
	}
	if c.Mode.FailureThreshold == 0 {
		c.Mode.FailureThreshold = defaultFailureThreshold
	}
	if c.Mode.HandoverMaxWait == 0 {
		c.Mode.HandoverMaxWait = defaultHandoverMaxWait
	}
	if c.Intervals.Poll == 0 {
		c.Intervals.Poll = defaultPollInterval
	}
	if c.Intervals.Events == 0 {
		c.Intervals.Events = defaultEventInterval
	}
	if c.Intervals.Diagnostics == 0 {
		c.Intervals.Diagnostics = defaultDiagnosticInterval
	}
	if c.Diagnostics.Workers == 0 {
		c.Diagnostics.Workers = defaultDiagnosticWorkers
	}
	if c.Diagnostics.DiskUsagePercent == 0 {
		c.Diagnostics.DiskUsagePercent = defaultDiskUsagePercent
	}
	if c.Diagnostics.MemoryUsagePercent == 0 {
		c.Diagnostics.MemoryUsagePercent = defaultMemoryUsagePercent
	}
	if c.SSH.User == "" {
		c.SSH.User = defaultSSHUser
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = defaultSSHPort
	}
	if len(c.ControlPlaneOperators) == 0 {
		c.ControlPlaneOperators = DefaultControlPlaneOperators()
	}
	if c.StatusSeverities == nil {
		c.StatusSeverities = DefaultStatusSeverities()
	} else {
		for status, sev := range DefaultStatusSeverities() {
			if _, ok := c.StatusSeverities[status]; !ok {
				c.StatusSeverities[status] = sev
			}
		}
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.InstallAPIURL == "" {
		return fmt.Errorf("installAPIURL must be set")
	}
	if c.StateFile == "" {
		return fmt.Errorf("stateFile must be set")
	}
	if c.Mode.FailureThreshold < 1 {
		return fmt.Errorf("mode.failureThreshold must be at least 1, got %d", c.Mode.FailureThreshold)
	}
	if c.Mode.SuccessThreshold < 0 {
		return fmt.Errorf("mode.successThreshold cannot be negative, got %d", c.Mode.SuccessThreshold)
	}
	if c.Diagnostics.Workers < 1 {
		return fmt.Errorf("diagnostics.workers must be at least 1, got %d", c.Diagnostics.Workers)
	}
	if c.Diagnostics.DiskUsagePercent < 1 || c.Diagnostics.DiskUsagePercent > 100 {
		return fmt.Errorf("diagnostics.diskUsagePercent must be within 1-100, got %d", c.Diagnostics.DiskUsagePercent)
	}
	if c.Diagnostics.MemoryUsagePercent < 1 || c.Diagnostics.MemoryUsagePercent > 100 {
		return fmt.Errorf("diagnostics.memoryUsagePercent must be within 1-100, got %d", c.Diagnostics.MemoryUsagePercent)
	}
	return nil
}
