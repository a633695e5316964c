package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nanobot-go/nanobot/internal/config"
	"github.com/spf13/cobra"
)

// buildAgentCmd runs the full stack: channel adapters, the agent loop, the
// cron scheduler and the heartbeat monitor, until the process receives a
// termination signal.
func buildAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "run channels, the agent loop, cron and heartbeat together",
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

			ctx, cancel := signalContext()
			defer cancel()

			rt.channels.Start(ctx)
			go rt.bus.DispatchOutboundLoop(ctx)
			go rt.loop.Run(ctx, rt.bus)
			rt.heart.Start(ctx)
			if err := rt.scheduler.Start(ctx); err != nil {
				logger.Error("cron scheduler failed to start", "error", err)
			}
			if cfg.Metrics.Enabled {
				go newMetricsExporter(rt.channels).Serve(ctx, cfg.Metrics.Addr, logger)
			}

			<-ctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			rt.heart.Stop()
			_ = rt.scheduler.Stop(shutdownCtx)
			rt.channels.Stop(shutdownCtx)
			return nil
		},
	}
}
