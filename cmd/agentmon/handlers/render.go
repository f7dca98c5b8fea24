package handlers

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agentmon/agentmon/internal/config"
	"github.com/agentmon/agentmon/internal/diag"
	"github.com/agentmon/agentmon/internal/installapi"
	"github.com/agentmon/agentmon/internal/monitor"
)

// renderSnapshot writes the human-readable status view for one snapshot,
// followed by the latest diagnostic findings when any exist.
func renderSnapshot(w io.Writer, snap *monitor.Snapshot, findings map[string][]diag.Finding) {
	fmt.Fprintf(w, "%s %s (%d%%)  [source: %s]\n",
		severityIndicator(snap.Severity), snap.Status, snap.Percent, snap.Source)
	if snap.StatusDetail != "" {
		fmt.Fprintf(w, "  %s\n", snap.StatusDetail)
	}

	if len(snap.Units) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Nodes:")
		for _, unit := range snap.Units {
			renderUnit(w, unit)
		}
	}

	if len(findings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		renderFindings(w, findings)
	}
	fmt.Fprintln(w)
}

// renderUnit prints one node line plus its failing validations, if any.
func renderUnit(w io.Writer, unit monitor.UnitRow) {
	parts := []string{unit.DisplayName, unit.Role, unit.State}
	if unit.DiskSummary != "" {
		parts = append(parts, unit.DiskSummary)
	}
	if unit.ProgressText != "" {
		parts = append(parts, unit.ProgressText)
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))

	for _, category := range sortedKeys(unit.Validations) {
		for _, v := range unit.Validations[category] {
			if v.Status == "success" {
				continue
			}
			fmt.Fprintf(w, "      %s/%s: %s (%s)\n", category, v.CheckID, v.Message, v.Status)
		}
	}
}

// renderFindings prints per-node findings sorted by hostname, the synthetic
// cluster entry last.
func renderFindings(w io.Writer, findings map[string][]diag.Finding) {
	hosts := make([]string, 0, len(findings))
	for host := range findings {
		if host != diag.ClusterNode {
			hosts = append(hosts, host)
		}
	}
	sort.Strings(hosts)
	if _, ok := findings[diag.ClusterNode]; ok {
		hosts = append(hosts, diag.ClusterNode)
	}

	for _, host := range hosts {
		fmt.Fprintf(w, "  %s:\n", host)
		for _, f := range findings[host] {
			fmt.Fprintf(w, "    %s %s\n", findingIndicator(f.Severity), f.Message)
		}
	}
}

// renderEvent formats one installation event as a single log-style line.
func renderEvent(event installapi.Event) string {
	return fmt.Sprintf("%s  %-8s %s", event.EventTime, event.Severity, event.Message)
}

func severityIndicator(s config.Severity) string {
	switch s {
	case config.SeveritySuccess:
		return "✓"
	case config.SeverityWarning:
		return "⚠"
	case config.SeverityError:
		return "✗"
	case config.SeverityInfo:
		return "◐"
	default:
		return "○"
	}
}

func findingIndicator(s diag.FindingSeverity) string {
	switch s {
	case diag.SeverityOK:
		return "✓"
	case diag.SeverityWarning:
		return "⚠"
	case diag.SeverityError:
		return "✗"
	default:
		return "○"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
