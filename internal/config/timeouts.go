package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	InstallAPI   time.Duration // Timeout for orchestration-API reads
	Reachability time.Duration // Timeout for the cheap control-plane probe
	ClusterAPI   time.Duration // Timeout for target-cluster API reads
	SSHDial      time.Duration // Timeout for establishing SSH connections
	Probe        time.Duration // Timeout for one per-node diagnostic command
	Gather       time.Duration // Timeout for the external gather script

	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - AGENTMON_TIMEOUT_INSTALL_API (default: 5s)
//   - AGENTMON_TIMEOUT_REACHABILITY (default: 3s)
//   - AGENTMON_TIMEOUT_CLUSTER_API (default: 10s)
//   - AGENTMON_TIMEOUT_SSH_DIAL (default: 5s)
//   - AGENTMON_TIMEOUT_PROBE (default: 60s)
//   - AGENTMON_TIMEOUT_GATHER (default: 10m)
//   - AGENTMON_RETRY_MAX_ATTEMPTS (default: 5)
//   - AGENTMON_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		InstallAPI:   parseDuration("AGENTMON_TIMEOUT_INSTALL_API", 5*time.Second),
		Reachability: parseDuration("AGENTMON_TIMEOUT_REACHABILITY", 3*time.Second),
		ClusterAPI:   parseDuration("AGENTMON_TIMEOUT_CLUSTER_API", 10*time.Second),
		SSHDial:      parseDuration("AGENTMON_TIMEOUT_SSH_DIAL", 5*time.Second),
		Probe:        parseDuration("AGENTMON_TIMEOUT_PROBE", 60*time.Second),
		Gather:       parseDuration("AGENTMON_TIMEOUT_GATHER", 10*time.Minute),

		RetryMaxAttempts:  parseInt("AGENTMON_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("AGENTMON_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return n
}
