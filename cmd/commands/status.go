package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"justdraft/internal/config"
	"justdraft/internal/heartbeat"
	"justdraft/internal/storage"
)

// NewStatusCommand returns the status subcommand: gateway liveness plus
// model usage totals from the ledger.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show gateway status and model usage",
		Action: func(_ context.Context, cmd *cli.Command) error {
			hbPath := filepath.Join(config.JustdraftPath(), "heartbeat.json")
			status, hb, err := heartbeat.Check(hbPath, 2*time.Minute)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Gateway: ALIVE at %s (PID %d, uptime %s)\n", hb.Addr, hb.PID, hb.Uptime)
			case heartbeat.StatusStale:
				fmt.Printf("Gateway: STALE (PID %d, last heartbeat %s ago)\n",
					hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Gateway: NOT RUNNING")
			}

			cfg := loadConfig(cmd)
			if cfg.Usage.Path == "" {
				return nil
			}
			usage, err := storage.NewUsageLog(cfg.Usage.Path)
			if err != nil {
				return fmt.Errorf("open usage ledger: %w", err)
			}
			defer usage.Close()

			totals, err := usage.Totals()
			if err != nil {
				return err
			}
			if len(totals) == 0 {
				fmt.Println("Usage: no model calls recorded")
				return nil
			}

			fmt.Println("\nUsage:")
			for _, t := range totals {
				fmt.Printf("  %-32s calls=%-5d failed=%-4d prompt=%-8d completion=%d\n",
					t.Model, t.Calls, t.Failures, t.PromptTokens, t.CompletionTokens)
			}
			return nil
		},
	}
}
