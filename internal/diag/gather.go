package diag

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Marker substrings the gather script prints in front of the archive path.
var gatherMarkers = []string{
	"Gathered data saved to",
	"sosreport archive:",
}

// GatherResult reports the outcome of the external diagnostic-gather
// script.
type GatherResult struct {
	// ArchivePath is the archive location scraped from the script's
	// stdout, "" when no marker line was found.
	ArchivePath string

	// Output is the script's combined output, for operator inspection.
	Output string
}

// RunGather invokes the external gather script as one blocking process with
// a multi-minute timeout. Success is solely exit code 0; the archive path is
// best-effort. The process is not retried: a stuck gather on a wedged node
// would only wedge again.
func RunGather(ctx context.Context, command string, timeout time.Duration) (*GatherResult, error) {
	gatherCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(gatherCtx, "/bin/sh", "-c", command) // #nosec G204 -- operator-configured script
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	result := &GatherResult{
		ArchivePath: scanArchivePath(&buf),
		Output:      buf.String(),
	}

	if gatherCtx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("gather script timed out after %s", timeout)
	}
	if err != nil {
		return result, fmt.Errorf("gather script failed: %w", err)
	}
	return result, nil
}

// scanArchivePath finds the first marker line and returns its last token,
// which by the gather script's contract is the archive path.
func scanArchivePath(output *bytes.Buffer) string {
	scanner := bufio.NewScanner(bytes.NewReader(output.Bytes()))
	for scanner.Scan() {
		line := scanner.Text()
		for _, marker := range gatherMarkers {
			if !strings.Contains(line, marker) {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) > 0 {
				return fields[len(fields)-1]
			}
		}
	}
	return ""
}
