package main

import (
	"fmt"
	"log/slog"

	"github.com/nanobot-go/nanobot/internal/config"
	"github.com/spf13/cobra"
)

// buildStatusCmd prints channel connectivity and scheduled job state
// without starting anything long-running.
func buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "print channel and cron job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := slog.Default()

			rt, err := buildRuntime(cfg, logger)
			if err != nil {
				return fmt.Errorf("build runtime: %w", err)
			}

			fmt.Println("channels:")
			for ct, st := range rt.channels.HealthSnapshot() {
				fmt.Printf("  %-10s connected=%-5v error=%q\n", ct, st.Connected, st.Error)
			}

			fmt.Println("cron jobs:")
			for _, j := range rt.scheduler.Jobs() {
				fmt.Printf("  %-24s enabled=%-5v next_run=%s\n", j.ID, j.Enabled, j.NextRun.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}
