package diag

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type fakeInspector struct {
	nodes       []corev1.Node
	pendingCSRs int
}

func (f *fakeInspector) Nodes(context.Context) ([]corev1.Node, error) { return f.nodes, nil }
func (f *fakeInspector) PendingCSRs(context.Context) (int, error)     { return f.pendingCSRs, nil }

func TestRunCycleReplacesFindings(t *testing.T) {
	runner := &fakeRunner{
		output: map[string]string{
			"192.168.1.201": "===SECTION kubelet===\nactive\n",
		},
		err: map[string]error{},
	}
	probe := newTestProbe(runner, time.Second)
	sched := NewScheduler(probe, nil, 2, logr.Discard())

	targets := []Target{
		{Hostname: "master-0", Addr: "192.168.1.201"},
		{Hostname: "master-1", Addr: "192.168.1.202"},
	}

	require.True(t, sched.RunCycle(context.Background(), targets))

	findings := sched.Findings()
	require.Len(t, findings, 2)
	assert.Equal(t, SeverityOK, findings["master-0"][0].Severity)
	// No scripted output for master-1: empty output still yields ok.
	assert.Equal(t, SeverityOK, findings["master-1"][0].Severity)

	// Second cycle with fewer targets replaces the whole map.
	require.True(t, sched.RunCycle(context.Background(), targets[:1]))
	findings = sched.Findings()
	require.Len(t, findings, 1)
	_, gone := findings["master-1"]
	assert.False(t, gone)
}

func TestRunCycleReentrancyGuard(t *testing.T) {
	runner := &fakeRunner{delay: 150 * time.Millisecond}
	probe := newTestProbe(runner, time.Second)
	sched := NewScheduler(probe, nil, 2, logr.Discard())

	targets := []Target{{Hostname: "master-0", Addr: "a"}}

	var wg sync.WaitGroup
	started := make(chan struct{})
	var firstRan bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		firstRan = sched.RunCycle(context.Background(), targets)
	}()

	<-started
	time.Sleep(20 * time.Millisecond)
	// The manual trigger shares the guard with the timer-driven cycle.
	assert.False(t, sched.RunCycle(context.Background(), targets))

	wg.Wait()
	assert.True(t, firstRan)

	// Once the first cycle drains, the guard releases.
	assert.True(t, sched.RunCycle(context.Background(), targets))
}

func TestClusterCheckPseudoNode(t *testing.T) {
	drifted := corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: "master-0",
			Annotations: map[string]string{
				"machineconfiguration.openshift.io/currentConfig": "rendered-a",
				"machineconfiguration.openshift.io/desiredConfig": "rendered-b",
			},
		},
	}
	inspector := &fakeInspector{nodes: []corev1.Node{drifted}, pendingCSRs: 2}

	probe := newTestProbe(&fakeRunner{}, time.Second)
	sched := NewScheduler(probe, inspector, 2, logr.Discard())

	require.True(t, sched.RunCycle(context.Background(), nil))

	findings := sched.Findings()
	cluster, ok := findings[ClusterNode]
	require.True(t, ok)
	require.Len(t, cluster, 2)
	assert.Contains(t, cluster[0].Message, "2 certificate signing requests pending")
	assert.Contains(t, cluster[1].Message, "node master-0 applying machine config rendered-b")
}

func TestClusterCheckCleanYieldsOK(t *testing.T) {
	probe := newTestProbe(&fakeRunner{}, time.Second)
	sched := NewScheduler(probe, &fakeInspector{}, 2, logr.Discard())

	require.True(t, sched.RunCycle(context.Background(), nil))

	cluster := sched.Findings()[ClusterNode]
	require.Len(t, cluster, 1)
	assert.Equal(t, SeverityOK, cluster[0].Severity)
}

func TestClusterCheckSkippedWithoutInspector(t *testing.T) {
	probe := newTestProbe(&fakeRunner{}, time.Second)
	sched := NewScheduler(probe, nil, 2, logr.Discard())

	require.True(t, sched.RunCycle(context.Background(), nil))
	_, ok := sched.Findings()[ClusterNode]
	assert.False(t, ok)
}
