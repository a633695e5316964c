// Package telegram adapts the Telegram Bot API (github.com/go-telegram/bot)
// to the runtime's channel contract.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/nanobot-go/nanobot/internal/channels/utils"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// Config holds the settings needed to run the Telegram adapter.
type Config struct {
	Token      string
	AllowFrom  []string
	MediaDir   string
	MaxMediaMB int64
	Logger     *slog.Logger
}

// Adapter implements channels.Adapter for Telegram long polling.
type Adapter struct {
	cfg       Config
	bus       channels.Publisher
	client    BotClient
	newBot    func(ctx context.Context, token string, handler bot.HandlerFunc) (*bot.Bot, error)
	logger    *slog.Logger
	health    *channels.BaseHealthAdapter
	reconnect *channels.Reconnector

	mu     sync.Mutex
	cancel context.CancelFunc
	botRef *bot.Bot
}

// NewAdapter constructs a Telegram adapter publishing inbound messages onto
// bus and sending through the real Telegram Bot API.
func NewAdapter(cfg Config, bus channels.Publisher) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("adapter", "telegram")
	health := channels.NewBaseHealthAdapter(models.ChannelTelegram, logger)
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
	}
}

func (a *Adapter) Type() models.ChannelType { return models.ChannelTelegram }

// Start runs the long-polling loop until ctx is cancelled, reconnecting on
// any transport error with back-off.
func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	return a.reconnect.Run(runCtx, func(ctx context.Context) error {
		b, err := bot.New(a.cfg.Token, bot.WithDefaultHandler(a.handleUpdate))
		if err != nil {
			return fmt.Errorf("telegram: create bot: %w", err)
		}
		a.mu.Lock()
		a.botRef = b
		if a.client == nil {
			a.client = newRealBotClient(b)
		}
		a.mu.Unlock()

		a.health.SetStatus(true, "")
		a.health.RecordConnectionOpened()
		b.Start(ctx)
		a.health.SetStatus(false, "long-poll loop exited")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("telegram: long-poll loop exited unexpectedly")
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

func (a *Adapter) handleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	senderID := ""
	if msg.From != nil {
		senderID = strconv.FormatInt(msg.From.ID, 10)
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	media := a.downloadMedia(ctx, msg)

	allowed, err := channels.BuildInbound(ctx, a.bus, models.ChannelTelegram, a.cfg.AllowFrom, senderID, chatID, msg.Text, media)
	if err != nil {
		a.logger.Error("publish inbound failed", "error", err)
		a.health.RecordMessageFailed()
		return
	}
	if !allowed {
		a.logger.Warn("sender denied by allow-list", "sender_id", senderID)
		return
	}
	a.health.RecordMessageReceived()
}

// downloadMedia fetches the first photo or document attached to msg,
// enforcing the configured per-attachment size cap, and stores it under
// MediaDir. Failures are logged, not fatal: the text portion still reaches
// the agent.
func (a *Adapter) downloadMedia(ctx context.Context, msg *tgmodels.Message) []models.Media {
	if a.cfg.MediaDir == "" || a.client == nil {
		return nil
	}
	var fileID, hint string
	switch {
	case len(msg.Photo) > 0:
		fileID = msg.Photo[len(msg.Photo)-1].FileID
		hint = "photo"
	case msg.Document != nil:
		fileID = msg.Document.FileID
		hint = msg.Document.FileName
	default:
		return nil
	}

	file, err := a.client.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		a.logger.Warn("telegram: get file failed", "error", err)
		return nil
	}
	url := "https://api.telegram.org/file/bot" + a.cfg.Token + "/" + file.FilePath

	maxBytes := a.cfg.MaxMediaMB * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	data, err := utils.DownloadURL(ctx, url, utils.DownloadOptions{Timeout: 30 * time.Second, MaxSize: maxBytes})
	if err != nil {
		a.logger.Warn("telegram: download attachment failed", "error", err)
		return nil
	}

	if err := os.MkdirAll(a.cfg.MediaDir, 0o755); err != nil {
		a.logger.Warn("telegram: create media dir failed", "error", err)
		return nil
	}
	path := filepath.Join(a.cfg.MediaDir, uuid.NewString()+"-"+hint)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger.Warn("telegram: write attachment failed", "error", err)
		return nil
	}
	return []models.Media{{Path: path}}
}

// Send delivers an outbound message through the Telegram Bot API.
func (a *Adapter) Send(ctx context.Context, msg models.OutboundMessage) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return fmt.Errorf("telegram: adapter not started")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", msg.ChatID, err)
	}

	start := time.Now()
	_, err = client.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: msg.Content})
	if err != nil {
		a.health.RecordMessageFailed()
		a.health.RecordActionFailed(channels.ActionSend)
		return fmt.Errorf("telegram: send message: %w", err)
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
