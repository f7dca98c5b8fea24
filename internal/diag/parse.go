package diag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Section sentinel emitted by the composite probe command. Everything
// between two sentinels belongs to the named section.
const sectionMarker = "===SECTION "

// Section names produced by probeCommand.
const (
	sectionKubelet       = "kubelet"
	sectionLogs          = "logs"
	sectionMachineConfig = "machineconfig"
	sectionDisk          = "disk"
	sectionMemory        = "memory"
	sectionContainers    = "containers"
)

// recentLineCap bounds how many matching lines a single section surfaces.
const recentLineCap = 3

var (
	certificatePattern = regexp.MustCompile(`(?i)certificate|x509|tls`)
	imagePullPattern   = regexp.MustCompile(`(?i)pull|image|manifest unknown`)
	dfLinePattern      = regexp.MustCompile(`^\S+\s+\d+\s+\d+\s+\d+\s+(\d+)%\s+(\S+)$`)
)

// thresholds holds the strictly-greater-than usage levels for resource
// pressure warnings.
type thresholds struct {
	diskPercent   int
	memoryPercent int
}

// splitSections cuts the probe output into named sections. Unknown sections
// are kept; content before the first sentinel is dropped.
func splitSections(output string) map[string][]string {
	sections := map[string][]string{}
	current := ""
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, sectionMarker) {
			name := strings.TrimSuffix(strings.TrimPrefix(trimmed, sectionMarker), "===")
			current = strings.TrimSpace(name)
			if _, ok := sections[current]; !ok {
				// Register the section even when it stays empty, so
				// "check ran, found nothing" is distinguishable from
				// "check missing from output".
				sections[current] = nil
			}
			continue
		}
		if current == "" || strings.TrimSpace(trimmed) == "" {
			continue
		}
		sections[current] = append(sections[current], trimmed)
	}
	return sections
}

// parseOutput interprets the sectioned probe output. Sections are
// independent: a malformed one contributes nothing and never hides the
// findings of the others.
func parseOutput(output string, th thresholds) []Finding {
	sections := splitSections(output)

	var findings []Finding
	findings = append(findings, parseKubelet(sections[sectionKubelet])...)
	findings = append(findings, parseLogs(sections[sectionLogs])...)
	if mcLines, ok := sections[sectionMachineConfig]; ok {
		findings = append(findings, parseMachineConfig(mcLines)...)
	}
	findings = append(findings, parseDisk(sections[sectionDisk], th.diskPercent)...)
	findings = append(findings, parseMemory(sections[sectionMemory], th.memoryPercent)...)
	findings = append(findings, parseContainers(sections[sectionContainers])...)

	if len(findings) == 0 {
		return okFinding()
	}
	return findings
}

// parseKubelet checks the service-active probe. systemctl prints a single
// state word.
func parseKubelet(lines []string) []Finding {
	if len(lines) == 0 {
		return nil
	}
	state := strings.TrimSpace(lines[0])
	if state == "active" {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Message:  fmt.Sprintf("kubelet service is %s", state),
	}}
}

// parseLogs classifies grepped kubelet log lines into certificate,
// image-pull and other buckets. Only the most recent lines of each bucket
// are surfaced.
func parseLogs(lines []string) []Finding {
	var certLines, pullLines, otherLines []string
	for _, line := range lines {
		switch {
		case certificatePattern.MatchString(line):
			certLines = append(certLines, line)
		case imagePullPattern.MatchString(line):
			pullLines = append(pullLines, line)
		default:
			otherLines = append(otherLines, line)
		}
	}

	var findings []Finding
	if len(certLines) > 0 {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Message:  "certificate errors in kubelet logs: " + joinRecent(certLines),
		})
	}
	if len(pullLines) > 0 {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Message:  "image pull errors in kubelet logs: " + joinRecent(pullLines),
		})
	}
	if len(otherLines) > 0 {
		findings = append(findings, Finding{
			Severity: SeverityInfo,
			Message:  "kubelet log errors: " + joinRecent(otherLines),
		})
	}
	return findings
}

// parseMachineConfig warns when the check ran but found no rendered
// machine-config id on the node. A present id is the healthy case and
// contributes nothing.
func parseMachineConfig(lines []string) []Finding {
	if len(lines) == 0 {
		return []Finding{{
			Severity: SeverityWarning,
			Message:  "no machine config applied yet",
		}}
	}
	return nil
}

// parseDisk checks `df -P` data lines against the usage threshold,
// strictly greater than.
func parseDisk(lines []string, threshold int) []Finding {
	var findings []Finding
	for _, line := range lines {
		m := dfLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		used, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if used > threshold {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("disk usage %d%% on %s", used, m[2]),
			})
		}
	}
	return findings
}

// parseMemory checks the `free -m` Mem: line against the usage threshold,
// strictly greater than.
func parseMemory(lines []string, threshold int) []Finding {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Mem:" {
			continue
		}
		total, err1 := strconv.Atoi(fields[1])
		used, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || total == 0 {
			continue
		}
		percent := used * 100 / total
		if percent > threshold {
			return []Finding{{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("memory usage %d%% (%d of %d MiB)", percent, used, total),
			}}
		}
	}
	return nil
}

// parseContainers surfaces the trailing non-running-container lines, capped
// to the most recent few.
func parseContainers(lines []string) []Finding {
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > recentLineCap {
		lines = lines[len(lines)-recentLineCap:]
	}
	findings := make([]Finding, 0, len(lines))
	for _, line := range lines {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Message:  "container not running: " + strings.TrimSpace(line),
		})
	}
	return findings
}

// joinRecent keeps the last few lines of a bucket, newest last.
func joinRecent(lines []string) string {
	if len(lines) > recentLineCap {
		lines = lines[len(lines)-recentLineCap:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " | ")
}
