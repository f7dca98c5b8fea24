package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/agentmon/agentmon/internal/config"
	"github.com/agentmon/agentmon/internal/installapi"
	"github.com/agentmon/agentmon/internal/kube"
)

// Weighting of the synthesized cluster-API percentage: node join is a
// smaller, earlier share of total bootstrap work than operator rollout.
const (
	nodeWeight     = 0.30
	operatorWeight = 0.70
)

// Aggregator reduces raw per-source facts into one Snapshot. It never
// blends data from both sources into the same snapshot.
type Aggregator struct {
	cfg      *config.Config
	manifest *config.Manifest

	controlPlaneOps map[string]struct{}
}

// NewAggregator creates an aggregator. manifest may be nil when the
// node-inventory manifest is unavailable.
func NewAggregator(cfg *config.Config, manifest *config.Manifest) *Aggregator {
	ops := make(map[string]struct{}, len(cfg.ControlPlaneOperators))
	for _, name := range cfg.ControlPlaneOperators {
		ops[name] = struct{}{}
	}
	return &Aggregator{cfg: cfg, manifest: manifest, controlPlaneOps: ops}
}

// Waiting produces the explicit "no data yet" snapshot. Absence of data is
// always rendered as a waiting state, never a silent blank.
func (a *Aggregator) Waiting(detail string) *Snapshot {
	return &Snapshot{
		Source:       ModeInstallAPI,
		Status:       "waiting-for-api",
		StatusDetail: detail,
		Severity:     config.SeverityWarning,
		Taken:        time.Now(),
	}
}

// FromInstallAPI builds a snapshot from orchestration-API data. Status and
// percentage are the API's own reported values; the status is classified
// through the configurable severity table.
func (a *Aggregator) FromInstallAPI(cluster *installapi.Cluster, hosts []installapi.Host) *Snapshot {
	snap := &Snapshot{
		Source:       ModeInstallAPI,
		Status:       cluster.Status,
		StatusDetail: cluster.StatusInfo,
		Severity:     a.cfg.SeverityFor(cluster.Status),
		Percent:      clampPercent(cluster.Progress.TotalPercentage),
		Taken:        time.Now(),
	}

	for _, host := range hosts {
		snap.Units = append(snap.Units, a.hostRow(host))
	}
	return snap
}

// hostRow converts one orchestration-API host into a display row.
func (a *Aggregator) hostRow(host installapi.Host) UnitRow {
	row := UnitRow{
		ID:           host.ID,
		DisplayName:  ResolveHostname(host, a.manifest),
		Role:         normalizeRole(host.Role),
		State:        host.Status,
		ProgressText: host.Progress.CurrentStage,
	}

	if inv, ok := host.DecodeInventory(); ok {
		row.DiskSummary = diskSummary(inv)
	}

	if checks, ok := host.DecodeValidations(); ok {
		row.Validations = map[string][]ValidationFinding{}
		for category, categoryChecks := range checks {
			findings := make([]ValidationFinding, 0, len(categoryChecks))
			for _, check := range categoryChecks {
				findings = append(findings, ValidationFinding{
					Category: category,
					CheckID:  check.ID,
					Status:   check.Status,
					Message:  check.Message,
				})
			}
			row.Validations[category] = findings
		}
	}

	return row
}

// diskSummary reports the installation disk's size and eligibility, e.g.
// "223GB ✓". The first eligible disk wins; with none, the first disk is
// shown as ineligible.
func diskSummary(inv installapi.Inventory) string {
	if len(inv.Disks) == 0 {
		return ""
	}
	disk := inv.Disks[0]
	for _, d := range inv.Disks {
		if d.InstallationEligibility.Eligible {
			disk = d
			break
		}
	}
	sizeGB := disk.SizeBytes / (1 << 30)
	mark := "✗"
	if disk.InstallationEligibility.Eligible {
		mark = "✓"
	}
	return fmt.Sprintf("%dGB %s", sizeGB, mark)
}

// FromClusterAPI synthesizes a snapshot from the target cluster, which has
// no single authoritative percentage. Ready nodes contribute 30%, available
// operators 70%; both terms guard against empty denominators.
func (a *Aggregator) FromClusterAPI(nodes []corev1.Node, operators []kube.ClusterOperator) *Snapshot {
	readyNodes := 0
	for _, node := range nodes {
		if kube.IsNodeReady(node) {
			readyNodes++
		}
	}
	availableOps := 0
	for _, op := range operators {
		if op.Available {
			availableOps++
		}
	}

	var nodeTerm, operatorTerm float64
	if len(nodes) > 0 {
		nodeTerm = nodeWeight * 100 * float64(readyNodes) / float64(len(nodes))
	}
	if len(operators) > 0 {
		operatorTerm = operatorWeight * 100 * float64(availableOps) / float64(len(operators))
	}
	percent := clampPercent(int(nodeTerm + operatorTerm))

	status := "installing"
	severity := config.SeverityInfo
	if percent >= 100 {
		status = "installed"
		severity = config.SeveritySuccess
	}

	snap := &Snapshot{
		Source:   ModeClusterAPI,
		Status:   status,
		Severity: severity,
		StatusDetail: fmt.Sprintf("%d/%d nodes ready, %d/%d operators available",
			readyNodes, len(nodes), availableOps, len(operators)),
		Percent: percent,
		Taken:   time.Now(),
	}

	rolling := a.rollingControlPlaneOperators(operators)
	for _, node := range nodes {
		snap.Units = append(snap.Units, nodeRow(node, rolling))
	}
	return snap
}

// rollingControlPlaneOperators returns the control-plane operators that are
// progressing and not yet available, sorted for stable display.
func (a *Aggregator) rollingControlPlaneOperators(operators []kube.ClusterOperator) []string {
	var rolling []string
	for _, op := range operators {
		if _, ok := a.controlPlaneOps[op.Name]; !ok {
			continue
		}
		if op.Progressing && !op.Available {
			rolling = append(rolling, op.Name)
		}
	}
	sort.Strings(rolling)
	return rolling
}

// nodeRow converts one node into a display row. Control-plane operators
// mid-rollout are attributed to every master node as its in-progress work,
// standing in for per-node progress the operators cannot report themselves.
func nodeRow(node corev1.Node, rolling []string) UnitRow {
	role := kube.NodeRole(node)

	state := "not-ready"
	if kube.IsNodeReady(node) {
		state = "ready"
	}

	progress := node.Status.NodeInfo.KubeletVersion
	if role == "master" && len(rolling) > 0 {
		progress = "rolling out: " + strings.Join(rolling, ", ")
	}

	return UnitRow{
		ID:           string(node.UID),
		DisplayName:  node.Name,
		Role:         role,
		State:        state,
		ProgressText: progress,
	}
}

func normalizeRole(role string) string {
	switch role {
	case "master", "worker":
		return role
	default:
		return "unknown"
	}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
