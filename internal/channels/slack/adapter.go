// Package slack adapts Slack's Socket Mode event stream and Web API
// (github.com/slack-go/slack) to the runtime's channel contract.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/nanobot-go/nanobot/pkg/models"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Config holds the settings needed to run the Slack adapter.
type Config struct {
	BotToken  string
	AppToken  string
	AllowFrom []string
	Logger    *slog.Logger
}

// Adapter implements channels.Adapter for Slack, connected via Socket Mode.
type Adapter struct {
	cfg       Config
	bus       channels.Publisher
	api       SlackAPIClient
	socket    SocketModeClient
	logger    *slog.Logger
	health    *channels.BaseHealthAdapter
	reconnect *channels.Reconnector

	newClient func(cfg Config) (SlackAPIClient, SocketModeClient)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAdapter constructs a Slack adapter publishing inbound messages onto
// bus and sending through the real Slack Web API.
func NewAdapter(cfg Config, bus channels.Publisher) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("adapter", "slack")
	health := channels.NewBaseHealthAdapter(models.ChannelSlack, logger)
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
		newClient: func(cfg Config) (SlackAPIClient, SocketModeClient) {
			api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
			sm := socketmode.New(api)
			return api, sm
		},
	}
}

func (a *Adapter) Type() models.ChannelType { return models.ChannelSlack }

func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	return a.reconnect.Run(runCtx, func(ctx context.Context) error {
		api, socketClient := a.newClient(a.cfg)
		a.mu.Lock()
		a.api = api
		a.socket = socketClient
		a.mu.Unlock()

		sm, ok := socketClient.(*socketmode.Client)
		if !ok {
			return fmt.Errorf("slack: socket mode client has no Run loop")
		}

		go a.handleEvents(ctx, socketClient)

		a.health.SetStatus(true, "")
		a.health.RecordConnectionOpened()

		runErr := make(chan error, 1)
		go func() { runErr <- sm.Run() }()

		select {
		case <-ctx.Done():
			a.health.SetStatus(false, "context cancelled")
			return ctx.Err()
		case err := <-runErr:
			a.health.SetStatus(false, "socket mode run exited")
			if err != nil {
				return fmt.Errorf("slack: socket mode run: %w", err)
			}
			return fmt.Errorf("slack: socket mode run exited unexpectedly")
		}
	})
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.health.SetStatus(false, "stopped")
	a.health.RecordConnectionClosed()
	return nil
}

func (a *Adapter) handleEvents(ctx context.Context, socketClient SocketModeClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-socketClient.Events():
			if !ok {
				return
			}
			a.handleEvent(ctx, socketClient, evt)
		}
	}
}

func (a *Adapter) handleEvent(ctx context.Context, socketClient SocketModeClient, evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	if evt.Request != nil {
		socketClient.Ack(*evt.Request)
	}

	inner, ok := eventsAPI.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	if inner.BotID != "" || inner.SubType != "" {
		return
	}

	allowed, err := channels.BuildInbound(ctx, a.bus, models.ChannelSlack, a.cfg.AllowFrom, inner.User, inner.Channel, inner.Text, nil)
	if err != nil {
		a.logger.Error("publish inbound failed", "error", err)
		a.health.RecordMessageFailed()
		return
	}
	if !allowed {
		a.logger.Warn("sender denied by allow-list", "sender_id", inner.User)
		return
	}
	a.health.RecordMessageReceived()
}

func (a *Adapter) Send(ctx context.Context, msg models.OutboundMessage) error {
	a.mu.Lock()
	api := a.api
	a.mu.Unlock()
	if api == nil {
		return fmt.Errorf("slack: adapter not started")
	}

	start := time.Now()
	_, _, err := api.PostMessageContext(ctx, msg.ChatID, slack.MsgOptionText(msg.Content, false))
	if err != nil {
		a.health.RecordMessageFailed()
		a.health.RecordActionFailed(channels.ActionSend)
		return fmt.Errorf("slack: post message: %w", err)
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
