package handlers

import (
	"context"
	"fmt"

	"github.com/agentmon/agentmon/internal/diag"
)

// Gather handles the gather command.
func Gather(ctx context.Context, configPath string) error {
	e, err := loadEnv(configPath, false)
	if err != nil {
		return err
	}
	if e.cfg.GatherCommand == "" {
		return fmt.Errorf("no gatherCommand configured")
	}

	result, err := diag.RunGather(ctx, e.cfg.GatherCommand, e.timeouts.Gather)
	if result != nil && result.Output != "" {
		fmt.Print(result.Output)
	}
	if err != nil {
		return err
	}

	if result.ArchivePath != "" {
		fmt.Printf("\nDiagnostics archive: %s\n", result.ArchivePath)
	} else {
		fmt.Println("\nGather finished, no archive path reported")
	}
	return nil
}
