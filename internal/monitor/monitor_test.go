package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/agentmon/agentmon/internal/config"
	"github.com/agentmon/agentmon/internal/installapi"
	"github.com/agentmon/agentmon/internal/kube"
)

type fakeInstall struct {
	cluster    *installapi.Cluster
	clusterErr error
	hosts      []installapi.Host
	hostsErr   error
	infraHosts []installapi.Host
}

func (f *fakeInstall) FirstCluster(context.Context) (*installapi.Cluster, error) {
	return f.cluster, f.clusterErr
}

func (f *fakeInstall) ClusterHosts(context.Context, string) ([]installapi.Host, error) {
	return f.hosts, f.hostsErr
}

func (f *fakeInstall) InfraEnvHosts(context.Context, string) ([]installapi.Host, error) {
	return f.infraHosts, nil
}

type fakeCluster struct {
	reachable bool
	nodes     []corev1.Node
	nodesErr  error
	operators []kube.ClusterOperator
}

func (f *fakeCluster) Reachable(context.Context) bool { return f.reachable }

func (f *fakeCluster) Nodes(context.Context) ([]corev1.Node, error) {
	return f.nodes, f.nodesErr
}

func (f *fakeCluster) ClusterOperators(context.Context) ([]kube.ClusterOperator, error) {
	return f.operators, nil
}

func newTestMonitor(install InstallSource, cluster ClusterSource, manifest *config.Manifest) *Monitor {
	cfg := testConfig()
	cfg.Mode = config.ModeConfig{
		SuccessThreshold: 5,
		FailureThreshold: 3,
		HandoverMaxWait:  20 * time.Minute,
	}
	cfg.Intervals.Poll = 10 * time.Second

	var factory ClusterFactory
	if cluster != nil {
		factory = func() (ClusterSource, error) { return cluster, nil }
	}
	return New(cfg, config.LoadTimeouts(), manifest, install, factory, logr.Discard())
}

func TestPollOncePublishesInstallSnapshot(t *testing.T) {
	install := &fakeInstall{
		cluster: &installapi.Cluster{
			ID:       "c1",
			Status:   "installing",
			Progress: installapi.Progress{TotalPercentage: 40},
		},
		hosts: []installapi.Host{
			{ID: "h1", RequestedHostname: "master-0", Role: "master", Status: "installing-in-progress", InfraEnvID: "ie-1"},
		},
	}
	m := newTestMonitor(install, nil, nil)

	m.PollOnce(context.Background())

	snap := m.Current()
	require.NotNil(t, snap)
	assert.Equal(t, ModeInstallAPI, snap.Source)
	assert.Equal(t, 40, snap.Percent)
	require.Len(t, snap.Units, 1)
	assert.Equal(t, "master-0", snap.Units[0].DisplayName)

	// The cluster id surfaced for the event stream.
	assert.Equal(t, "c1", m.ClusterID())
	assert.Equal(t, 1, m.State().CumulativeSuccesses)
}

func TestPollOncePrefersInfraEnvHosts(t *testing.T) {
	install := &fakeInstall{
		cluster: &installapi.Cluster{ID: "c1", Status: "installing"},
		hosts: []installapi.Host{
			{ID: "h1", Role: "master", InfraEnvID: "ie-1"},
		},
		infraHosts: []installapi.Host{
			{ID: "h1", RequestedHostname: "master-0", Role: "master"},
			{ID: "h2", RequestedHostname: "worker-0", Role: "worker"},
		},
	}
	m := newTestMonitor(install, nil, nil)

	m.PollOnce(context.Background())

	snap := m.Current()
	require.NotNil(t, snap)
	require.Len(t, snap.Units, 2)
	assert.Equal(t, "worker-0", snap.Units[1].DisplayName)
}

func TestPollOnceMissingCredentialsPublishesWaiting(t *testing.T) {
	install := &fakeInstall{clusterErr: installapi.ErrNoCredentials}
	m := newTestMonitor(install, nil, nil)

	m.PollOnce(context.Background())

	snap := m.Current()
	require.NotNil(t, snap)
	assert.Equal(t, "waiting-for-api", snap.Status)
	assert.Equal(t, "waiting for installer credentials", snap.StatusDetail)

	// Credential absence is a pause, not a failure.
	assert.Equal(t, 0, m.State().ConsecutiveFailures)
}

func TestPollOnceWaitingNeverOverwritesRealSnapshot(t *testing.T) {
	install := &fakeInstall{
		cluster: &installapi.Cluster{ID: "c1", Status: "installing", Progress: installapi.Progress{TotalPercentage: 30}},
	}
	m := newTestMonitor(install, nil, nil)

	m.PollOnce(context.Background())
	require.NotNil(t, m.Current())

	install.cluster = nil
	install.clusterErr = installapi.ErrTransient
	m.PollOnce(context.Background())

	// The stale snapshot stays visible through the outage.
	snap := m.Current()
	assert.Equal(t, 30, snap.Percent)
	assert.Equal(t, "installing", snap.Status)
	assert.Equal(t, 1, m.State().ConsecutiveFailures)
}

func TestPollOnceSwitchesWithinCycleOnSourceLoss(t *testing.T) {
	install := &fakeInstall{
		cluster: &installapi.Cluster{ID: "c1", Status: "installing"},
	}
	cluster := &fakeCluster{
		nodes:     []corev1.Node{makeNode("m0", true, true)},
		operators: makeOperators(4, 4),
	}
	m := newTestMonitor(install, cluster, nil)

	for i := 0; i < 6; i++ {
		m.PollOnce(context.Background())
	}

	// The install API goes away for good; the third consecutive failure
	// trips the switch and the same cycle reads from the cluster.
	install.cluster = nil
	install.clusterErr = installapi.ErrTransient
	m.PollOnce(context.Background())
	m.PollOnce(context.Background())
	assert.Equal(t, ModeInstallAPI, m.State().Mode)

	m.PollOnce(context.Background())
	assert.Equal(t, ModeClusterAPI, m.State().Mode)

	snap := m.Current()
	require.NotNil(t, snap)
	assert.Equal(t, ModeClusterAPI, snap.Source)
	assert.Equal(t, 100, snap.Percent)
}

func TestPollOnceGracefulHandover(t *testing.T) {
	install := &fakeInstall{
		cluster: &installapi.Cluster{ID: "c1", Status: "finalizing", Progress: installapi.Progress{TotalPercentage: 90}},
	}
	cluster := &fakeCluster{
		reachable: true,
		nodes: []corev1.Node{
			makeNode("m0", true, true),
			makeNode("w0", true, false),
		},
		operators: makeOperators(3, 2),
	}
	manifest := &config.Manifest{
		RendezvousIP: "192.168.1.201",
		Hosts: []config.ManifestHost{
			{Hostname: "master-0", Role: "master"},
			{Hostname: "worker-0", Role: "worker"},
		},
	}
	m := newTestMonitor(install, cluster, manifest)

	// All expected nodes visible on a reachable cluster: the cycle
	// switches before collecting, even though the install API still works.
	m.PollOnce(context.Background())

	assert.Equal(t, ModeClusterAPI, m.State().Mode)
	snap := m.Current()
	require.NotNil(t, snap)
	assert.Equal(t, ModeClusterAPI, snap.Source)
}

func TestClusterModeUnreachableKeepsLastSnapshot(t *testing.T) {
	cluster := &fakeCluster{
		reachable: true,
		nodes:     []corev1.Node{makeNode("m0", true, true)},
		operators: makeOperators(2, 2),
	}
	manifest := &config.Manifest{
		Hosts: []config.ManifestHost{{Hostname: "master-0", Role: "master", IP: "192.168.1.10"}},
	}
	m := newTestMonitor(&fakeInstall{clusterErr: installapi.ErrTransient}, cluster, manifest)

	m.PollOnce(context.Background())
	require.Equal(t, ModeClusterAPI, m.State().Mode)
	require.NotNil(t, m.Current())
	prev := m.Current().Percent

	cluster.nodesErr = installapi.ErrTransient
	m.PollOnce(context.Background())

	assert.Equal(t, prev, m.Current().Percent)
}

func TestStoreDropsStalePublish(t *testing.T) {
	store := NewStore()

	older := store.Begin()
	newer := store.Begin()

	require.True(t, store.Publish(&Snapshot{Status: "new"}, newer))
	assert.False(t, store.Publish(&Snapshot{Status: "old"}, older))
	assert.Equal(t, "new", store.Current().Status)
}

func TestTargetsFromManifest(t *testing.T) {
	manifest := &config.Manifest{
		RendezvousIP: "192.168.1.201",
		Hosts: []config.ManifestHost{
			{Hostname: "master-0", Role: "master"},
			{Hostname: "master-1", Role: "master"},
			{Hostname: "worker-0", Role: "worker", IP: "192.168.1.230"},
		},
	}
	m := newTestMonitor(&fakeInstall{}, nil, manifest)

	targets := m.Targets()
	require.Len(t, targets, 3)
	assert.Equal(t, "192.168.1.201", targets[0].Addr)
	assert.Equal(t, "192.168.1.202", targets[1].Addr)
	assert.Equal(t, "192.168.1.230", targets[2].Addr)
}
