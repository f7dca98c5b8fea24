package monitor

import (
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/agentmon/agentmon/internal/config"
)

// Mode names the authoritative data source.
type Mode string

const (
	// ModeInstallAPI reads progress from the installation-orchestration
	// API on the rendezvous host. Initial mode.
	ModeInstallAPI Mode = "install-api"

	// ModeClusterAPI reads progress from the target cluster's own
	// management plane. Terminal: there is no way back.
	ModeClusterAPI Mode = "cluster-api"
)

// ModeState is the controller's observable state, including the plain
// counters that make the machine testable without a live network.
type ModeState struct {
	Mode                Mode
	ConsecutiveFailures int
	CumulativeSuccesses int
	LastSwitchReason    string
}

// Controller decides which data source is authoritative. Two paths lead
// from the install API to the cluster API:
//
//  1. Graceful handover: the target control plane answers the cheap
//     reachability probe and reports at least the expected node count.
//  2. Source loss: the install API worked before (more than
//     successThreshold reads) and has now failed failureThreshold times in
//     a row, so the handover was presumably missed.
//
// A third, configurable escape hatch covers a wrong expected node count:
// a target cluster that stays reachable for longer than handoverMaxWait
// wins even if the node count criterion never fires.
type Controller struct {
	mu    sync.Mutex
	state ModeState

	successThreshold int
	failureThreshold int
	handoverMaxWait  time.Duration

	// expectedNodes <= 0 disables the node-count criterion (no usable
	// manifest).
	expectedNodes int

	reachableSince time.Time
	log            logr.Logger
}

// NewController creates the mode state machine in install-API mode.
func NewController(cfg config.ModeConfig, expectedNodes int, log logr.Logger) *Controller {
	return &Controller{
		state:            ModeState{Mode: ModeInstallAPI},
		successThreshold: cfg.SuccessThreshold,
		failureThreshold: cfg.FailureThreshold,
		handoverMaxWait:  cfg.HandoverMaxWait,
		expectedNodes:    expectedNodes,
		log:              log,
	}
}

// Mode returns the currently authoritative source.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

// State returns a copy of the controller state.
func (c *Controller) State() ModeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RecordSuccess notes a successful install-API read. It resets the failure
// streak; flapping cannot accumulate across successes.
func (c *Controller) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeInstallAPI {
		return
	}
	c.state.ConsecutiveFailures = 0
	c.state.CumulativeSuccesses++
}

// RecordFailure notes a failed install-API read and returns true when the
// failure streak triggers the source-loss handover. Credential absence must
// not be reported here; it pauses polling without counting as source death.
func (c *Controller) RecordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeInstallAPI {
		return false
	}

	c.state.ConsecutiveFailures++
	if c.state.CumulativeSuccesses > c.successThreshold &&
		c.state.ConsecutiveFailures >= c.failureThreshold {
		c.switchLocked("install API lost after repeated failures")
		return true
	}
	return false
}

// ObserveTargetCluster feeds the reachability probe result and the node
// count visible through the target cluster. Returns true when this
// observation triggers the handover.
func (c *Controller) ObserveTargetCluster(reachable bool, nodeCount int, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeInstallAPI {
		return false
	}

	if !reachable {
		c.reachableSince = time.Time{}
		return false
	}

	if c.reachableSince.IsZero() {
		c.reachableSince = now
	}

	if c.expectedNodes > 0 && nodeCount >= c.expectedNodes {
		c.switchLocked("target cluster reachable with expected node count")
		return true
	}

	if c.handoverMaxWait > 0 && now.Sub(c.reachableSince) >= c.handoverMaxWait {
		c.switchLocked("target cluster reachable past handover max wait")
		return true
	}

	return false
}

func (c *Controller) switchLocked(reason string) {
	c.state.Mode = ModeClusterAPI
	c.state.LastSwitchReason = reason
	c.log.Info("switching authoritative data source", "mode", c.state.Mode, "reason", reason)
}
