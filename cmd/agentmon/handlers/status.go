package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentmon/agentmon/internal/monitor"
	"github.com/agentmon/agentmon/internal/retry"
)

// Status handles the status command: poll the authoritative source once and
// print the resulting view. Transient source blips are retried with backoff;
// absent installer credentials are not, since they can stay absent for
// minutes and the waiting view is the correct answer then.
func Status(ctx context.Context, configPath string, jsonOutput bool) error {
	e, err := loadEnv(configPath, false)
	if err != nil {
		return err
	}

	mon := monitor.New(e.cfg, e.timeouts, e.manifest, e.install, e.clusterFactory(nil), e.log)

	_ = retry.WithBackoff(ctx, func() error {
		mon.PollOnce(ctx)
		snap := mon.Current()
		if snap == nil {
			return fmt.Errorf("no data yet")
		}
		if snap.Status != "waiting-for-api" {
			return nil
		}
		if snap.StatusDetail == "waiting for installer credentials" {
			return retry.Fatal(fmt.Errorf("installer credentials not available"))
		}
		return fmt.Errorf("authoritative source not answering: %s", snap.StatusDetail)
	},
		retry.WithMaxAttempts(e.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(e.timeouts.RetryInitialDelay),
	)

	// Whatever the retries produced, even the waiting view, is printed.
	snap := mon.Current()
	if snap == nil {
		return fmt.Errorf("no status available")
	}

	if jsonOutput {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	renderSnapshot(os.Stdout, snap, nil)
	return nil
}
