package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"

	"github.com/agentmon/agentmon/internal/config"
	"github.com/agentmon/agentmon/internal/diag"
	"github.com/agentmon/agentmon/internal/installapi"
	"github.com/agentmon/agentmon/internal/kube"
)

// InstallSource is the slice of the orchestration API client the monitor
// consumes.
type InstallSource interface {
	FirstCluster(ctx context.Context) (*installapi.Cluster, error)
	ClusterHosts(ctx context.Context, clusterID string) ([]installapi.Host, error)
	InfraEnvHosts(ctx context.Context, infraEnvID string) ([]installapi.Host, error)
}

// ClusterSource is the slice of the target-cluster client the monitor
// consumes.
type ClusterSource interface {
	Reachable(ctx context.Context) bool
	Nodes(ctx context.Context) ([]corev1.Node, error)
	ClusterOperators(ctx context.Context) ([]kube.ClusterOperator, error)
}

// ClusterFactory builds the target-cluster client once its kubeconfig
// exists. It is retried every cycle until it succeeds.
type ClusterFactory func() (ClusterSource, error)

// Monitor runs the poll loop: decide the mode, collect from the
// authoritative source, aggregate, publish. One cycle's failure degrades
// that cycle's data and nothing else.
type Monitor struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	manifest *config.Manifest

	install        InstallSource
	clusterFactory ClusterFactory

	controller *Controller
	aggregator *Aggregator
	store      *Store
	log        logr.Logger

	snapshots chan *Snapshot

	mu         sync.Mutex
	cluster    ClusterSource
	clusterID  string
	infraEnvID string
}

// New creates a monitor. manifest may be nil; the node-count handover
// criterion and diagnostics targeting are then disabled.
func New(cfg *config.Config, timeouts *config.Timeouts, manifest *config.Manifest,
	install InstallSource, clusterFactory ClusterFactory, log logr.Logger) *Monitor {

	expectedNodes := 0
	if manifest != nil {
		expectedNodes = manifest.ExpectedNodeCount()
	}

	return &Monitor{
		cfg:            cfg,
		timeouts:       timeouts,
		manifest:       manifest,
		install:        install,
		clusterFactory: clusterFactory,
		controller:     NewController(cfg.Mode, expectedNodes, log),
		aggregator:     NewAggregator(cfg, manifest),
		store:          NewStore(),
		log:            log,
		snapshots:      make(chan *Snapshot, 8),
	}
}

// Snapshots is the renderer's wake-up channel. The store always holds the
// latest snapshot; the channel only signals that a new one exists, so a
// slow consumer misses wake-ups, never data.
func (m *Monitor) Snapshots() <-chan *Snapshot {
	return m.snapshots
}

// Current returns the latest published snapshot, nil before the first.
func (m *Monitor) Current() *Snapshot {
	return m.store.Current()
}

// State exposes the mode state machine for display and tests.
func (m *Monitor) State() ModeState {
	return m.controller.State()
}

// ClusterID returns the orchestration API's cluster id once discovered,
// "" before that. The event stream keys its polling on it.
func (m *Monitor) ClusterID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clusterID
}

// Targets lists the nodes the diagnostic scheduler should probe, derived
// from the manifest's ordered host list.
func (m *Monitor) Targets() []diag.Target {
	if m.manifest == nil {
		return nil
	}
	targets := make([]diag.Target, 0, len(m.manifest.Hosts))
	for i, host := range m.manifest.Hosts {
		addr := m.manifest.HostIP(i)
		if addr == "" {
			continue
		}
		targets = append(targets, diag.Target{Hostname: host.Hostname, Addr: addr})
	}
	return targets
}

// Run polls on the configured interval until the context is cancelled.
// Cycles are fire-and-forget: a cycle whose network calls are still
// draining when the next timer fires is not waited for; each call carries
// its own timeout and the store drops stale publishes.
func (m *Monitor) Run(ctx context.Context) {
	m.PollOnce(ctx)

	ticker := time.NewTicker(m.cfg.Intervals.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go m.PollOnce(ctx)
		}
	}
}

// PollOnce runs one full cycle: mode decision first, then collection and
// aggregation, then an atomic publish.
func (m *Monitor) PollOnce(ctx context.Context) {
	gen := m.store.Begin()

	mode := m.controller.Mode()
	if mode == ModeInstallAPI {
		reachable, nodeCount := m.probeTarget(ctx)
		if m.controller.ObserveTargetCluster(reachable, nodeCount, time.Now()) {
			mode = ModeClusterAPI
		}
	}

	if mode == ModeClusterAPI {
		m.pollClusterAPI(ctx, gen)
		return
	}
	m.pollInstallAPI(ctx, gen)
}

// pollInstallAPI collects from the orchestration API and handles the
// failure taxonomy: credential absence pauses, transient failures count
// toward the handover threshold, success resets the streak.
func (m *Monitor) pollInstallAPI(ctx context.Context, gen uint64) {
	snap, err := m.collectInstallAPI(ctx)
	switch {
	case err == nil:
		m.controller.RecordSuccess()
		m.publish(snap, gen)

	case errors.Is(err, installapi.ErrNoCredentials):
		m.publishWaiting("waiting for installer credentials", gen)

	default:
		installAPIFailures.Inc()
		m.log.V(1).Info("install API poll failed", "error", err.Error())
		if m.controller.RecordFailure() {
			// The source is considered lost; this same cycle reads
			// from the cluster so the view does not stall.
			m.pollClusterAPI(ctx, gen)
			return
		}
		m.publishWaiting("waiting for install API", gen)
	}
}

// collectInstallAPI reads the cluster and its hosts. The infra-env host
// list is preferred once an infra-env id is known because it carries
// richer identity data.
func (m *Monitor) collectInstallAPI(ctx context.Context) (*Snapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeouts.InstallAPI)
	defer cancel()

	cluster, err := m.install.FirstCluster(callCtx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.clusterID = cluster.ID
	infraEnvID := m.infraEnvID
	m.mu.Unlock()

	hostsCtx, cancelHosts := context.WithTimeout(ctx, m.timeouts.InstallAPI)
	defer cancelHosts()

	hosts, err := m.install.ClusterHosts(hostsCtx, cluster.ID)
	if err != nil {
		return nil, err
	}

	if infraEnvID == "" {
		for _, host := range hosts {
			if host.InfraEnvID != "" {
				infraEnvID = host.InfraEnvID
				m.mu.Lock()
				m.infraEnvID = infraEnvID
				m.mu.Unlock()
				break
			}
		}
	}

	if infraEnvID != "" {
		ieCtx, cancelIE := context.WithTimeout(ctx, m.timeouts.InstallAPI)
		richer, err := m.install.InfraEnvHosts(ieCtx, infraEnvID)
		cancelIE()
		if err == nil && len(richer) > 0 {
			hosts = richer
		}
	}

	return m.aggregator.FromInstallAPI(cluster, hosts), nil
}

// pollClusterAPI collects from the target cluster's management plane. A
// failed cycle leaves the previous snapshot visible.
func (m *Monitor) pollClusterAPI(ctx context.Context, gen uint64) {
	cluster := m.clusterSource()
	if cluster == nil {
		m.publishWaiting("waiting for target cluster API", gen)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeouts.ClusterAPI)
	defer cancel()

	nodes, err := cluster.Nodes(callCtx)
	if err != nil {
		m.log.V(1).Info("node list failed", "error", err.Error())
		m.publishWaiting("waiting for target cluster API", gen)
		return
	}

	operators, err := cluster.ClusterOperators(callCtx)
	if err != nil {
		m.log.V(1).Info("cluster operator list failed", "error", err.Error())
		operators = nil
	}

	m.publish(m.aggregator.FromClusterAPI(nodes, operators), gen)
}

// probeTarget runs the cheap reachability probe and counts visible nodes.
func (m *Monitor) probeTarget(ctx context.Context) (reachable bool, nodeCount int) {
	cluster := m.clusterSource()
	if cluster == nil {
		return false, 0
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.timeouts.Reachability)
	defer cancel()

	if !cluster.Reachable(probeCtx) {
		return false, 0
	}

	nodes, err := cluster.Nodes(probeCtx)
	if err != nil {
		return true, 0
	}
	return true, len(nodes)
}

// clusterSource returns the cached target-cluster client, building it
// lazily; the kubeconfig only appears partway through the install.
func (m *Monitor) clusterSource() ClusterSource {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cluster != nil {
		return m.cluster
	}
	if m.clusterFactory == nil {
		return nil
	}
	cluster, err := m.clusterFactory()
	if err != nil || cluster == nil {
		return nil
	}
	m.cluster = cluster
	return cluster
}

// publishWaiting publishes the explicit waiting state, but only while no
// real snapshot exists: stale data beats a blank screen.
func (m *Monitor) publishWaiting(detail string, gen uint64) {
	if m.store.Current() != nil {
		return
	}
	m.publish(m.aggregator.Waiting(detail), gen)
}

// publish installs the snapshot and signals the renderer. Stale cycles
// are dropped by the store.
func (m *Monitor) publish(snap *Snapshot, gen uint64) {
	if !m.store.Publish(snap, gen) {
		return
	}
	observeSnapshot(snap)

	select {
	case m.snapshots <- snap:
	default:
	}
}
