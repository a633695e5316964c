// Package websocket adapts a bidirectional WebSocket bridge
// (github.com/gorilla/websocket) to the runtime's channel contract. Unlike
// the vendor-specific adapters, it listens for inbound connections rather
// than dialing out to a fixed service: any client that can open a WebSocket
// and exchange JSON frames becomes a channel peer.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// frame is the wire shape exchanged over a bridge connection in both
// directions. Outbound frames reuse the same struct with Content/Media set
// and SenderID left blank.
type frame struct {
	SenderID string         `json:"sender_id"`
	Content  string         `json:"content"`
	Media    []models.Media `json:"media,omitempty"`
}

// Config holds the settings needed to run the WebSocket bridge adapter.
type Config struct {
	// ListenAddr is the address the bridge listens on, e.g. ":8765".
	ListenAddr string
	AllowFrom  []string
	Logger     *slog.Logger
}

// Adapter implements channels.Adapter by running a WebSocket server.
// Each accepted connection is keyed by its remote chat id (the client-
// supplied SenderID from its first frame), so outbound Send calls can be
// routed back to the right socket.
type Adapter struct {
	cfg    Config
	bus    channels.Publisher
	logger *slog.Logger
	health *channels.BaseHealthAdapter

	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewAdapter constructs a WebSocket bridge adapter publishing inbound
// messages onto bus and sending through whichever connection matches the
// destination chat id.
func NewAdapter(cfg Config, bus channels.Publisher) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("adapter", "websocket")
	return &Adapter{
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		health: channels.NewBaseHealthAdapter(models.ChannelSystem, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
}

func (a *Adapter) Type() models.ChannelType { return models.ChannelSystem }

func (a *Adapter) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("websocket: listen on %s: %w", a.cfg.ListenAddr, err)
	}
	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleWS)
	a.server = &http.Server{Handler: mux}

	a.health.SetStatus(true, "")
	a.health.RecordConnectionOpened()

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(listener) }()

	select {
	case <-ctx.Done():
		_ = a.server.Close()
		a.health.SetStatus(false, "context cancelled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			a.health.SetStatus(false, err.Error())
			return fmt.Errorf("websocket: serve: %w", err)
		}
		return nil
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	conns := make([]*websocket.Conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.conns = make(map[string]*websocket.Conn)
	a.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if server != nil {
		_ = server.Shutdown(ctx)
	}
	a.health.SetStatus(false, "stopped")
	a.health.RecordConnectionClosed()
	return nil
}

func (a *Adapter) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("upgrade failed", "error", err)
		return
	}
	a.serveConn(r.Context(), conn)
}

func (a *Adapter) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	var chatID string
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if chatID != "" {
				a.mu.Lock()
				delete(a.conns, chatID)
				a.mu.Unlock()
			}
			return
		}
		if chatID == "" {
			chatID = f.SenderID
			a.mu.Lock()
			a.conns[chatID] = conn
			a.mu.Unlock()
		}

		allowed, err := channels.BuildInbound(ctx, a.bus, models.ChannelSystem, a.cfg.AllowFrom, f.SenderID, chatID, f.Content, f.Media)
		if err != nil {
			a.logger.Error("publish inbound failed", "error", err)
			a.health.RecordMessageFailed()
			continue
		}
		if !allowed {
			a.logger.Warn("sender denied by allow-list", "sender_id", f.SenderID)
			continue
		}
		a.health.RecordMessageReceived()
	}
}

func (a *Adapter) Send(ctx context.Context, msg models.OutboundMessage) error {
	a.mu.Lock()
	conn, ok := a.conns[msg.ChatID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("websocket: no open connection for chat %q", msg.ChatID)
	}

	start := time.Now()
	out := frame{Content: msg.Content, Media: msg.Media}
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("websocket: marshal outbound frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		a.health.RecordMessageFailed()
		a.health.RecordActionFailed(channels.ActionSend)
		return fmt.Errorf("websocket: write message: %w", err)
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
