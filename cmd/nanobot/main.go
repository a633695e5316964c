// Package main provides the CLI entry point for the nanobot multi-channel
// conversational agent runtime.
//
// nanobot connects messaging platforms (Telegram, Discord, Slack, WhatsApp,
// and raw WebSocket bridges) to LLM providers (Anthropic, OpenAI) through a
// single agent loop and tool registry.
//
//	nanobot agent --config nanobot.yaml
//	nanobot status --config nanobot.yaml
//	nanobot cron list --config nanobot.yaml
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "nanobot",
		Short:        "nanobot - multi-channel conversational agent runtime",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "nanobot.yaml", "path to the configuration document")
	root.AddCommand(
		buildAgentCmd(),
		buildGatewayCmd(),
		buildCronCmd(),
		buildStatusCmd(),
	)
	return root
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
