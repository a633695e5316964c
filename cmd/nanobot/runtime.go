package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nanobot-go/nanobot/internal/agent"
	"github.com/nanobot-go/nanobot/internal/bus"
	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/nanobot-go/nanobot/internal/channels/discord"
	"github.com/nanobot-go/nanobot/internal/channels/slack"
	"github.com/nanobot-go/nanobot/internal/channels/telegram"
	"github.com/nanobot-go/nanobot/internal/channels/websocket"
	"github.com/nanobot-go/nanobot/internal/channels/whatsapp"
	"github.com/nanobot-go/nanobot/internal/config"
	agentctx "github.com/nanobot-go/nanobot/internal/context"
	"github.com/nanobot-go/nanobot/internal/cron"
	"github.com/nanobot-go/nanobot/internal/heartbeat"
	"github.com/nanobot-go/nanobot/internal/memory"
	"github.com/nanobot-go/nanobot/internal/providers"
	"github.com/nanobot-go/nanobot/internal/sessions"
	"github.com/nanobot-go/nanobot/internal/skills"
	"github.com/nanobot-go/nanobot/internal/tools"
	"github.com/nanobot-go/nanobot/internal/tools/exec"
	"github.com/nanobot-go/nanobot/internal/tools/files"
	toolcron "github.com/nanobot-go/nanobot/internal/tools/cron"
	toolmessage "github.com/nanobot-go/nanobot/internal/tools/message"
	toolsubagent "github.com/nanobot-go/nanobot/internal/tools/subagent"
	"github.com/nanobot-go/nanobot/internal/tools/websearch"
	"github.com/nanobot-go/nanobot/pkg/models"
)

const defaultRatePerSec = 1.0
const defaultBurst = 5

// runtime bundles every long-lived collaborator the agent and gateway
// commands start. gateway mode omits loop, scheduler and heartbeat; agent
// mode runs all of it.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	bus       *bus.Bus
	channels  *channels.Manager
	scheduler *cron.Scheduler
	heart     *heartbeat.Monitor
	loop      *agent.Loop
}

// buildRuntime wires every collaborator from cfg. A provider that fails to
// construct is logged and skipped. buildRuntime returns an error when no
// registered provider resolves cfg.Agents.Model, or when the session store,
// memory store, skills manager or scheduler cannot be built. Channel
// adapters are constructed without an error path; connection failures only
// surface once an adapter starts.
func buildRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	b := bus.New(logger)

	mgr := channels.NewManager(b, logger)
	registerAdapters(cfg, b, mgr, logger)

	providerRegistry := providers.NewRegistry()
	registerProviders(cfg, providerRegistry, logger)
	provider, ok := providerRegistry.Resolve(cfg.Agents.Model)
	if !ok {
		return nil, fmt.Errorf("no LLM provider configured for model %q", cfg.Agents.Model)
	}

	store, err := sessions.NewStore(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	memStore, err := memory.NewStore(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	skillMgr, err := skills.NewManager(&skills.SkillsConfig{}, cfg.Workspace.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	if err := skillMgr.Discover(context.Background()); err != nil {
		return nil, fmt.Errorf("discover skills: %w", err)
	}
	skillSource := skills.NewSource(skillMgr, logger)

	builder := agentctx.NewBuilder("nanobot", cfg.Workspace.Path, memStore, skillSource)

	registry := tools.NewRegistry()

	scheduler, err := cron.NewScheduler(cfg.Cron, cron.WithLogger(logger), cron.WithInboundSender(newBusMessageSender(b)))
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	registerTools(cfg, registry, b, scheduler)

	loop := agent.New(agent.Config{
		MaxIterations: cfg.Agents.MaxToolIterations,
		Model:         cfg.Agents.Model,
	}, b, store, registry, builder, provider, logger)

	hb := heartbeat.NewMonitor(heartbeat.Config{
		FilePath: cfg.Workspace.Path + "/" + cfg.Heartbeat.File,
		Interval: cfg.Heartbeat.Interval,
		Channel:  models.ChannelSystem,
		ChatID:   "system:heartbeat",
	}, b, logger)

	return &runtime{cfg: cfg, logger: logger, bus: b, channels: mgr, scheduler: scheduler, heart: hb, loop: loop}, nil
}

func registerProviders(cfg *config.Config, registry *providers.Registry, logger *slog.Logger) {
	if p, ok := cfg.Providers["anthropic"]; ok {
		prov, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey: p.APIKey, BaseURL: p.APIBase, DefaultModel: p.DefaultModel,
		})
		if err != nil {
			logger.Error("anthropic provider init failed", "error", err)
		} else {
			registry.Register("claude", prov)
			registry.SetFallback(prov)
		}
	}
	if p, ok := cfg.Providers["openai"]; ok {
		prov, err := providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey: p.APIKey, BaseURL: p.APIBase, DefaultModel: p.DefaultModel,
		})
		if err != nil {
			logger.Error("openai provider init failed", "error", err)
		} else {
			registry.Register("gpt", prov)
		}
	}
}

func registerTools(cfg *config.Config, registry *tools.Registry, b *bus.Bus, scheduler *cron.Scheduler) {
	resolver := files.Resolver{Root: cfg.Workspace.Path, Restrict: cfg.Tools.RestrictToWorkspace}
	registry.Register(&files.ReadTool{Resolver: resolver})
	registry.Register(&files.WriteTool{Resolver: resolver})
	registry.Register(&files.ListTool{Resolver: resolver})

	workDir := cfg.Workspace.Path
	if !cfg.Tools.RestrictToWorkspace {
		workDir = ""
	}
	registry.Register(&exec.Tool{Config: exec.Config{WorkDir: workDir}})

	registry.Register(toolmessage.New(b))
	registry.Register(toolcron.New(newCronToolAdapter(scheduler)))
	registry.Register(toolsubagent.New(newAgentSpawner(b)))

	if cfg.Tools.Web.Search.Endpoint != "" {
		registry.Register(&websearch.SearchTool{
			Endpoint: cfg.Tools.Web.Search.Endpoint,
			APIKey:   cfg.Tools.Web.Search.APIKey,
		})
	}
	registry.Register(&websearch.FetchTool{})
}

func registerAdapters(cfg *config.Config, b *bus.Bus, mgr *channels.Manager, logger *slog.Logger) {
	if ch, ok := cfg.Channels["telegram"]; ok && ch.Enabled {
		a := telegram.NewAdapter(telegram.Config{
			Token: ch.Extra["token"], AllowFrom: ch.AllowFrom,
			MediaDir: ch.MediaDir, MaxMediaMB: int64(ch.MaxMediaMB), Logger: logger,
		}, b)
		mgr.Register(a, defaultRatePerSec, defaultBurst)
	}
	if ch, ok := cfg.Channels["discord"]; ok && ch.Enabled {
		a := discord.NewAdapter(discord.Config{Token: ch.Extra["token"], AllowFrom: ch.AllowFrom, Logger: logger}, b)
		mgr.Register(a, defaultRatePerSec, defaultBurst)
	}
	if ch, ok := cfg.Channels["slack"]; ok && ch.Enabled {
		a := slack.NewAdapter(slack.Config{
			BotToken: ch.Extra["botToken"], AppToken: ch.Extra["appToken"],
			AllowFrom: ch.AllowFrom, Logger: logger,
		}, b)
		mgr.Register(a, defaultRatePerSec, defaultBurst)
	}
	if ch, ok := cfg.Channels["whatsapp"]; ok && ch.Enabled {
		a := whatsapp.NewAdapter(whatsapp.Config{
			SessionPath: ch.Extra["sessionPath"], AllowFrom: ch.AllowFrom,
			MediaDir: ch.MediaDir, MaxMediaMB: int64(ch.MaxMediaMB), Logger: logger,
		}, b)
		mgr.Register(a, defaultRatePerSec, defaultBurst)
	}
	if ch, ok := cfg.Channels["websocket"]; ok && ch.Enabled {
		a := websocket.NewAdapter(websocket.Config{
			ListenAddr: ch.Extra["listenAddr"], AllowFrom: ch.AllowFrom, Logger: logger,
		}, b)
		mgr.Register(a, defaultRatePerSec, defaultBurst)
	}
}
