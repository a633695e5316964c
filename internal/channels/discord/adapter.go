// Package discord adapts the Discord gateway (github.com/bwmarrin/discordgo)
// to the runtime's channel contract.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// session is the subset of *discordgo.Session the adapter calls, narrowed
// for test injection.
type session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
}

// Config holds the settings needed to run the Discord adapter.
type Config struct {
	Token     string
	AllowFrom []string
	Logger    *slog.Logger
}

// Adapter implements channels.Adapter for Discord.
type Adapter struct {
	cfg       Config
	bus       channels.Publisher
	session   session
	newSession func(token string) (session, error)
	logger    *slog.Logger
	health    *channels.BaseHealthAdapter
	reconnect *channels.Reconnector

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAdapter constructs a Discord adapter publishing inbound messages onto
// bus and sending through the real Discord gateway/REST API.
func NewAdapter(cfg Config, bus channels.Publisher) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("adapter", "discord")
	health := channels.NewBaseHealthAdapter(models.ChannelDiscord, logger)
	return &Adapter{
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		health: health,
		reconnect: &channels.Reconnector{
			Config: channels.DefaultReconnectConfig(),
			Logger: logger,
			Health: health,
		},
		newSession: func(token string) (session, error) {
			dg, err := discordgo.New("Bot " + token)
			if err != nil {
				return nil, err
			}
			return realSession{dg}, nil
		},
	}
}

func (a *Adapter) Type() models.ChannelType { return models.ChannelDiscord }

func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	return a.reconnect.Run(runCtx, func(ctx context.Context) error {
		sess, err := a.newSession(a.cfg.Token)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		sess.AddHandler(a.handleMessageCreate)

		if err := sess.Open(); err != nil {
			return fmt.Errorf("discord: open session: %w", err)
		}
		a.mu.Lock()
		a.session = sess
		a.mu.Unlock()
		a.health.SetStatus(true, "")
		a.health.RecordConnectionOpened()

		<-ctx.Done()
		_ = sess.Close()
		a.health.SetStatus(false, "context cancelled")
		return ctx.Err()
	})
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	sess := a.session
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if sess != nil {
		_ = sess.Close()
	}
	a.health.SetStatus(false, "stopped")
	a.health.RecordConnectionClosed()
	return nil
}

func (a *Adapter) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	allowed, err := channels.BuildInbound(context.Background(), a.bus, models.ChannelDiscord, a.cfg.AllowFrom, m.Author.ID, m.ChannelID, m.Content, nil)
	if err != nil {
		a.logger.Error("publish inbound failed", "error", err)
		a.health.RecordMessageFailed()
		return
	}
	if !allowed {
		a.logger.Warn("sender denied by allow-list", "sender_id", m.Author.ID)
		return
	}
	a.health.RecordMessageReceived()
}

func (a *Adapter) Send(ctx context.Context, msg models.OutboundMessage) error {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("discord: adapter not started")
	}

	start := time.Now()
	_, err := sess.ChannelMessageSend(msg.ChatID, msg.Content)
	if err != nil {
		a.health.RecordMessageFailed()
		a.health.RecordActionFailed(channels.ActionSend)
		return fmt.Errorf("discord: send message: %w", err)
	}
	a.health.RecordMessageSent()
	a.health.RecordActionExecuted(channels.ActionSend, time.Since(start))
	return nil
}

func (a *Adapter) Status() channels.Status { return a.health.Status() }

func (a *Adapter) HealthCheck(ctx context.Context) channels.HealthStatus {
	return a.health.HealthCheck(ctx)
}

func (a *Adapter) Metrics() channels.MetricsSnapshot { return a.health.Metrics() }

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	*discordgo.Session
}
