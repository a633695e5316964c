package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nanobot-go/nanobot/internal/config"
	"github.com/spf13/cobra"
)

// buildGatewayCmd runs only the channel adapters and outbound dispatch,
// with no agent loop, cron or heartbeat. Inbound messages are queued on the
// in-process bus and nothing in this mode consumes them.
func buildGatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "run channel adapters without the agent loop",
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
			if cfg.Metrics.Enabled {
				go newMetricsExporter(rt.channels).Serve(ctx, cfg.Metrics.Addr, logger)
			}

			<-ctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			rt.channels.Stop(shutdownCtx)
			return nil
		},
	}
}
