// Package diag collects node-local health facts that neither progress data
// source can see: service state, log errors, machine-config drift, disk and
// memory pressure, and stuck containers.
package diag

// FindingSeverity classifies a diagnostic finding.
type FindingSeverity string

const (
	SeverityOK      FindingSeverity = "ok"
	SeverityInfo    FindingSeverity = "info"
	SeverityWarning FindingSeverity = "warning"
	SeverityError   FindingSeverity = "error"
)

// Finding is one health fact about a node, produced once per diagnostic
// cycle. A node's findings from the previous cycle are replaced wholesale.
type Finding struct {
	Severity FindingSeverity
	Message  string
}

// okFinding is the synthetic result for a clean check. A probed node always
// yields at least one finding so the renderer can tell "checked, clean"
// from "not yet checked".
func okFinding() []Finding {
	return []Finding{{Severity: SeverityOK, Message: "No issues detected"}}
}

func errorFinding(message string) []Finding {
	return []Finding{{Severity: SeverityError, Message: message}}
}
