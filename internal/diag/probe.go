package diag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/agentmon/agentmon/internal/sshexec"
)

// probeCommand is the one consolidated remote command executed per node.
// Each sub-check prints a sentinel line followed by its raw output, so a
// single SSH round trip yields everything parseOutput needs. Sub-checks are
// defensive: a missing tool produces an empty section, not a failed command.
const probeCommand = `echo "===SECTION kubelet==="
systemctl is-active kubelet 2>&1
echo "===SECTION logs==="
journalctl -u kubelet --no-pager -n 200 2>/dev/null | grep -iE 'error|failed' | grep -iE 'certificate|x509|tls|pull|image' | tail -n 20
echo "===SECTION machineconfig==="
grep -o 'rendered-[a-z0-9-]*' /etc/machine-config-daemon/currentconfig 2>/dev/null | head -n 1
echo "===SECTION disk==="
df -P /var 2>/dev/null | tail -n +2
echo "===SECTION memory==="
free -m 2>/dev/null | grep '^Mem:'
echo "===SECTION containers==="
sudo crictl ps -a 2>/dev/null | tail -n +2 | grep -vi running | tail -n 5
true`

// Probe runs the consolidated health check against a single node and
// classifies its output. It never returns an error: connection failures and
// timeouts degrade into a single error finding, and a clean node yields a
// single ok finding.
type Probe struct {
	runner  sshexec.Runner
	timeout time.Duration
	th      thresholds
	log     logr.Logger
}

// NewProbe creates a node diagnostic probe. diskPercent and memoryPercent
// are the strictly-greater-than warning thresholds.
func NewProbe(runner sshexec.Runner, timeout time.Duration, diskPercent, memoryPercent int, log logr.Logger) *Probe {
	return &Probe{
		runner:  runner,
		timeout: timeout,
		th:      thresholds{diskPercent: diskPercent, memoryPercent: memoryPercent},
		log:     log,
	}
}

// Check probes one node. The returned slice is never empty.
func (p *Probe) Check(ctx context.Context, hostname, addr string) []Finding {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.runner.Run(probeCtx, addr, probeCommand)
	if err != nil {
		p.log.V(1).Info("node probe failed", "host", hostname, "addr", addr, "error", err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return errorFinding(fmt.Sprintf("timeout probing %s", hostname))
		}
		return errorFinding(fmt.Sprintf("unreachable: %s", hostname))
	}

	return parseOutput(output, p.th)
}
