package diag

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner scripts per-host responses for probe tests.
type fakeRunner struct {
	output map[string]string
	err    map[string]error
	delay  time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, host, _ string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.err[host]; ok {
		return "", err
	}
	return f.output[host], nil
}

func newTestProbe(runner *fakeRunner, timeout time.Duration) *Probe {
	return NewProbe(runner, timeout, 85, 90, logr.Discard())
}

func TestProbeCleanNode(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{
		"192.168.1.201": "===SECTION kubelet===\nactive\n",
	}}
	probe := newTestProbe(runner, time.Second)

	findings := probe.Check(context.Background(), "master-0", "192.168.1.201")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityOK, findings[0].Severity)
	assert.Equal(t, "No issues detected", findings[0].Message)
}

func TestProbeUnreachableNode(t *testing.T) {
	runner := &fakeRunner{err: map[string]error{
		"192.168.1.202": errors.New("connection refused"),
	}}
	probe := newTestProbe(runner, time.Second)

	findings := probe.Check(context.Background(), "master-1", "192.168.1.202")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "unreachable: master-1")
}

func TestProbeTimeout(t *testing.T) {
	runner := &fakeRunner{delay: time.Second}
	probe := newTestProbe(runner, 10*time.Millisecond)

	findings := probe.Check(context.Background(), "worker-0", "192.168.1.203")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "timeout probing worker-0")
}

func TestProbeSurfacesParsedFindings(t *testing.T) {
	output := fmt.Sprintf("===SECTION disk===\n/dev/sda4 100 90 10 %d%% /var\n", 91)
	runner := &fakeRunner{output: map[string]string{"addr": output}}
	probe := newTestProbe(runner, time.Second)

	findings := probe.Check(context.Background(), "master-0", "addr")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "disk usage 91% on /var")
}
