package diag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"

	"github.com/agentmon/agentmon/internal/kube"
)

// ClusterNode is the synthetic pseudo-node that carries cluster-level
// findings (pending CSRs, machine-config drift) not attributable to a
// single machine.
const ClusterNode = "cluster"

// Target identifies one node to probe.
type Target struct {
	Hostname string
	Addr     string
}

// ClusterInspector is the slice of the cluster client the scheduler needs
// for its once-per-cycle cluster-level diagnostic. Nil disables it.
type ClusterInspector interface {
	Nodes(ctx context.Context) ([]corev1.Node, error)
	PendingCSRs(ctx context.Context) (int, error)
}

// Scheduler fans the probe out across all known nodes with bounded
// concurrency and folds the results into a findings map keyed by hostname.
// A cycle's results fully replace the previous cycle's.
type Scheduler struct {
	probe     *Probe
	inspector ClusterInspector
	workers   int
	log       logr.Logger

	// running is the reentrancy guard shared by the periodic timer and
	// the manual trigger.
	running atomic.Bool

	mu        sync.RWMutex
	findings  map[string][]Finding
	lastCycle time.Time
}

// NewScheduler creates a diagnostic scheduler. inspector may be nil when no
// cluster client is available yet.
func NewScheduler(probe *Probe, inspector ClusterInspector, workers int, log logr.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		probe:     probe,
		inspector: inspector,
		workers:   workers,
		log:       log,
		findings:  map[string][]Finding{},
	}
}

// SetInspector installs the cluster client once the target cluster becomes
// reachable.
func (s *Scheduler) SetInspector(inspector ClusterInspector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspector = inspector
}

// Findings returns a copy of the latest per-node findings.
func (s *Scheduler) Findings() map[string][]Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Finding, len(s.findings))
	for host, fs := range s.findings {
		copied := make([]Finding, len(fs))
		copy(copied, fs)
		out[host] = copied
	}
	return out
}

// LastCycle reports when the previous cycle completed.
func (s *Scheduler) LastCycle() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCycle
}

// RunCycle probes all targets concurrently and replaces the findings map.
// It returns false without doing anything when a cycle is already in
// flight; the timer and a manual trigger share this guard.
func (s *Scheduler) RunCycle(ctx context.Context, targets []Target) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.V(1).Info("diagnostic cycle already running, skipping")
		return false
	}
	defer s.running.Store(false)

	results := make(map[string][]Finding, len(targets)+1)
	var resultsMu sync.Mutex

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(tg Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			findings := s.probe.Check(ctx, tg.Hostname, tg.Addr)

			resultsMu.Lock()
			results[tg.Hostname] = findings
			resultsMu.Unlock()
		}(target)
	}

	// The cluster-level diagnostic runs once per cycle, independent of the
	// per-node probes.
	clusterFindings := s.clusterCheck(ctx)

	wg.Wait()

	if clusterFindings != nil {
		results[ClusterNode] = clusterFindings
	}

	s.mu.Lock()
	s.findings = results
	s.lastCycle = time.Now()
	s.mu.Unlock()

	return true
}

// Start runs periodic cycles until the context is cancelled. listTargets is
// consulted at the start of each cycle so newly discovered nodes join the
// probe set automatically.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, listTargets func() []Target) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx, listTargets())
		}
	}
}

// clusterCheck gathers the cluster-scoped facts. Returns nil when no
// inspector is installed yet.
func (s *Scheduler) clusterCheck(ctx context.Context) []Finding {
	s.mu.RLock()
	inspector := s.inspector
	s.mu.RUnlock()

	if inspector == nil {
		return nil
	}

	var findings []Finding

	pending, err := inspector.PendingCSRs(ctx)
	switch {
	case err != nil:
		findings = append(findings, Finding{
			Severity: SeverityError,
			Message:  "failed to list certificate signing requests",
		})
	case pending > 0:
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d certificate signing requests pending approval", pending),
		})
	}

	nodes, err := inspector.Nodes(ctx)
	if err != nil {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Message:  "failed to list nodes for machine-config check",
		})
	} else {
		for _, node := range nodes {
			current, desired, drifted := kube.MachineConfigDrift(node)
			if drifted {
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("node %s applying machine config %s (current %s)", node.Name, desired, current),
				})
			}
		}
	}

	if len(findings) == 0 {
		return okFinding()
	}
	return findings
}
