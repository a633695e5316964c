// Package whatsapp adapts the WhatsApp multi-device protocol
// (go.mau.fi/whatsmeow) to the runtime's channel contract.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/nanobot-go/nanobot/pkg/models"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// waClient is the subset of *whatsmeow.Client the adapter calls, narrowed
// for test injection.
type waClient interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	AddEventHandler(handler whatsmeow.EventHandler) uint32
	SendMessage(ctx context.Context, to types.JID, message *waProto.Message) (whatsmeow.SendResponse, error)
}

// Config holds the settings needed to run the WhatsApp adapter.
type Config struct {
	SessionPath string
	AllowFrom   []string
	MediaDir    string
	MaxMediaMB  int64
	Logger      *slog.Logger
}

// Adapter implements channels.Adapter for WhatsApp.
type Adapter struct {
	cfg    Config
	bus    channels.Publisher
	client waClient

	newClient func(ctx context.Context, sessionPath string, logger waLog.Logger) (waClient, error)

	logger    *slog.Logger
	health    *channels.BaseHealthAdapter
	reconnect *channels.Reconnector

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAdapter constructs a WhatsApp adapter publishing inbound messages onto
// bus and sending through a whatsmeow-backed multi-device session.
func NewAdapter(cfg Config, bus channels.Publisher) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("adapter", "whatsapp")
	health := channels.NewBaseHealthAdapter(models.ChannelWhatsApp, logger)
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
		newClient: newRealClient,
	}
}

func newRealClient(ctx context.Context, sessionPath string, logger waLog.Logger) (waClient, error) {
	if sessionPath == "" {
		sessionPath = "file:whatsapp.db?_foreign_keys=on"
	}
	container, err := sqlstore.New(ctx, "sqlite3", sessionPath, logger)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}
	return whatsmeow.NewClient(device, logger), nil
}

func (a *Adapter) Type() models.ChannelType { return models.ChannelWhatsApp }

func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	return a.reconnect.Run(runCtx, func(ctx context.Context) error {
		waLogger := waLog.Stdout("whatsmeow", "WARN", true)
		client, err := a.newClient(ctx, a.cfg.SessionPath, waLogger)
		if err != nil {
			return err
		}
		client.AddEventHandler(a.handleEvent)

		if err := client.Connect(); err != nil {
			return fmt.Errorf("whatsapp: connect: %w", err)
		}
		a.mu.Lock()
		a.client = client
		a.mu.Unlock()
		a.health.SetStatus(true, "")
		a.health.RecordConnectionOpened()

		<-ctx.Done()
		client.Disconnect()
		a.health.SetStatus(false, "context cancelled")
		return ctx.Err()
	})
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	client := a.client
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if client != nil {
		client.Disconnect()
	}
	a.health.SetStatus(false, "stopped")
	a.health.RecordConnectionClosed()
	return nil
}

func (a *Adapter) handleEvent(evt interface{}) {
	msg, ok := evt.(*events.Message)
	if !ok {
		return
	}
	if msg.Info.IsFromMe {
		return
	}
	text := msg.Message.GetConversation()
	if text == "" && msg.Message.GetExtendedTextMessage() != nil {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return
	}

	senderID := msg.Info.Sender.User
	chatID := msg.Info.Chat.String()

	allowed, err := channels.BuildInbound(context.Background(), a.bus, models.ChannelWhatsApp, a.cfg.AllowFrom, senderID, chatID, text, nil)
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

func (a *Adapter) Send(ctx context.Context, msg models.OutboundMessage) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return fmt.Errorf("whatsapp: adapter not started")
	}

	jid, err := types.ParseJID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("whatsapp: invalid chat id %q: %w", msg.ChatID, err)
	}

	start := time.Now()
	_, err = client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(msg.Content),
	})
	if err != nil {
		a.health.RecordMessageFailed()
		a.health.RecordActionFailed(channels.ActionSend)
		return fmt.Errorf("whatsapp: send message: %w", err)
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
