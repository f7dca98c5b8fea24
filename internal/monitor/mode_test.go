package monitor

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmon/agentmon/internal/config"
)

func newTestController(expectedNodes int) *Controller {
	return NewController(config.ModeConfig{
		SuccessThreshold: 5,
		FailureThreshold: 3,
		HandoverMaxWait:  20 * time.Minute,
	}, expectedNodes, logr.Discard())
}

func TestNeverSwitchesOnFirstFailure(t *testing.T) {
	c := newTestController(3)

	// Zero prior successes: no amount of failures may trigger the
	// source-loss path.
	for i := 0; i < 10; i++ {
		assert.False(t, c.RecordFailure(), "failure %d must not switch", i+1)
	}
	assert.Equal(t, ModeInstallAPI, c.Mode())
}

func TestSourceLossPathNeedsBothThresholds(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		want      bool
	}{
		{name: "plenty of successes, streak below threshold", successes: 6, failures: 2, want: false},
		{name: "successes at threshold exactly, full streak", successes: 5, failures: 3, want: false},
		{name: "successes above threshold, full streak", successes: 6, failures: 3, want: true},
		{name: "long history, full streak", successes: 50, failures: 3, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(3)
			for i := 0; i < tt.successes; i++ {
				c.RecordSuccess()
			}
			switched := false
			for i := 0; i < tt.failures; i++ {
				switched = c.RecordFailure()
			}
			assert.Equal(t, tt.want, switched)
			if tt.want {
				assert.Equal(t, ModeClusterAPI, c.Mode())
				assert.Contains(t, c.State().LastSwitchReason, "repeated failures")
			} else {
				assert.Equal(t, ModeInstallAPI, c.Mode())
			}
		})
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	c := newTestController(3)
	for i := 0; i < 10; i++ {
		c.RecordSuccess()
	}

	c.RecordFailure()
	c.RecordFailure()
	c.RecordSuccess() // streak back to zero
	c.RecordFailure()
	assert.False(t, c.RecordFailure())
	assert.Equal(t, ModeInstallAPI, c.Mode())

	// Third consecutive failure completes the streak.
	assert.True(t, c.RecordFailure())
}

func TestGracefulHandover(t *testing.T) {
	now := time.Now()
	c := newTestController(3)

	// Reachable but short on nodes: no switch.
	assert.False(t, c.ObserveTargetCluster(true, 2, now))
	assert.Equal(t, ModeInstallAPI, c.Mode())

	// Expected node count reached: switch, even while the install API
	// still answers.
	assert.True(t, c.ObserveTargetCluster(true, 3, now.Add(time.Second)))
	assert.Equal(t, ModeClusterAPI, c.Mode())
	assert.Contains(t, c.State().LastSwitchReason, "expected node count")
}

func TestNodeCountCriterionDisabledWithoutManifest(t *testing.T) {
	c := newTestController(0)
	assert.False(t, c.ObserveTargetCluster(true, 100, time.Now()))
	assert.Equal(t, ModeInstallAPI, c.Mode())
}

func TestHandoverMaxWaitEscapeHatch(t *testing.T) {
	now := time.Now()
	c := newTestController(5)

	// Reachable, node count stuck below a (wrong) expected count.
	assert.False(t, c.ObserveTargetCluster(true, 3, now))
	assert.False(t, c.ObserveTargetCluster(true, 3, now.Add(10*time.Minute)))

	// Reachability drops: the wait clock resets.
	assert.False(t, c.ObserveTargetCluster(false, 0, now.Add(11*time.Minute)))
	assert.False(t, c.ObserveTargetCluster(true, 3, now.Add(12*time.Minute)))
	assert.False(t, c.ObserveTargetCluster(true, 3, now.Add(30*time.Minute)))

	// Continuously reachable past the max wait: escape hatch fires.
	assert.True(t, c.ObserveTargetCluster(true, 3, now.Add(33*time.Minute)))
	assert.Contains(t, c.State().LastSwitchReason, "max wait")
}

func TestClusterAPIModeIsTerminal(t *testing.T) {
	c := newTestController(1)
	require.True(t, c.ObserveTargetCluster(true, 1, time.Now()))

	// Nothing moves the machine back.
	c.RecordSuccess()
	assert.False(t, c.RecordFailure())
	assert.False(t, c.ObserveTargetCluster(false, 0, time.Now()))
	assert.Equal(t, ModeClusterAPI, c.Mode())

	// Counters stop accumulating after the switch.
	state := c.State()
	assert.Equal(t, 0, state.CumulativeSuccesses)
}
