package channels

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nanobot-go/nanobot/internal/bus"
	"github.com/nanobot-go/nanobot/internal/channels/chunk"
	chandelivery "github.com/nanobot-go/nanobot/internal/channels/context"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// Manager owns a map of name -> adapter (spec.md §4.6). It starts every
// adapter as a concurrent task plus one outbound-dispatch subscription per
// channel, and stops them all on shutdown. A construction failure for one
// adapter must never prevent the others from starting, so Manager takes
// already-constructed adapters: callers build each one from config and
// report build failures themselves before registering what succeeded.
type Manager struct {
	bus    *bus.Bus
	logger *slog.Logger

	mu       sync.Mutex
	adapters map[models.ChannelType]Adapter
	limiters *MultiRateLimiter
}

// NewManager returns an empty Manager bound to bus b.
func NewManager(b *bus.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{bus: b, logger: logger, adapters: map[models.ChannelType]Adapter{}, limiters: NewMultiRateLimiter()}
}

// Register adds an adapter and subscribes its Send method to the bus's
// outbound queue for its channel type, throttled to rate messages/sec with
// the given burst capacity. The throttle waits on the bus's single
// outbound-dispatch goroutine, so while one channel waits for a token,
// outbound messages for every other channel wait behind it. Call before
// Start.
//
// Content longer than the channel's message-size limit is split with
// chunk.MarkdownForChannel before dispatch, so a channel's own cap (e.g.
// Discord's 2000 characters) never has to be enforced by every adapter
// individually.
func (m *Manager) Register(a Adapter, rate float64, burst int) {
	m.mu.Lock()
	m.adapters[a.Type()] = a
	m.limiters.Add(string(a.Type()), rate, burst)
	m.mu.Unlock()

	m.bus.SubscribeOutbound(a.Type(), func(ctx context.Context, msg models.OutboundMessage) error {
		if err := m.limiters.Wait(ctx, string(a.Type())); err != nil {
			return err
		}
		for _, part := range splitOutbound(msg) {
			if err := a.Send(ctx, part); err != nil {
				return err
			}
		}
		return nil
	})
}

// splitOutbound reformats msg.Content for its channel's markdown flavor
// (e.g. Slack mrkdwn, Telegram MarkdownV2, stripped for channels with no
// rich text) and then chunks it for its channel's size limit, replaying
// ReplyTo/Media/Metadata on every part but attaching Media only to the
// last one so it isn't duplicated across chunks.
func splitOutbound(msg models.OutboundMessage) []models.OutboundMessage {
	dc := chandelivery.New(string(msg.Channel))
	content := dc.FormatText(msg.Content)

	parts := chunk.MarkdownForChannel(content, string(msg.Channel))
	if len(parts) <= 1 {
		msg.Content = content
		return []models.OutboundMessage{msg}
	}

	out := make([]models.OutboundMessage, len(parts))
	for i, content := range parts {
		part := msg
		part.Content = content
		if i != len(parts)-1 {
			part.Media = nil
		}
		out[i] = part
	}
	return out
}

// Start launches every registered adapter as a concurrent goroutine. An
// adapter whose Start returns an error is logged; the rest keep running.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	adapters := make([]Adapter, 0, len(m.adapters))
	for _, a := range m.adapters {
		adapters = append(adapters, a)
	}
	m.mu.Unlock()

	for _, a := range adapters {
		go func(a Adapter) {
			if err := a.Start(ctx); err != nil {
				m.logger.Error("channel adapter start failed", "channel", a.Type(), "error", err)
			}
		}(a)
	}
}

// Stop stops every registered adapter. Errors are logged, not propagated,
// per spec.md's shutdown contract.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	adapters := make([]Adapter, 0, len(m.adapters))
	for _, a := range m.adapters {
		adapters = append(adapters, a)
	}
	m.mu.Unlock()

	for _, a := range adapters {
		if err := a.Stop(ctx); err != nil {
			m.logger.Error("channel adapter stop failed", "channel", a.Type(), "error", err)
		}
	}
}

// HealthSnapshot returns the current Status of every adapter that reports
// one.
func (m *Manager) HealthSnapshot() map[models.ChannelType]Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.ChannelType]Status, len(m.adapters))
	for ct, a := range m.adapters {
		if h, ok := a.(HealthAdapter); ok {
			out[ct] = h.Status()
		}
	}
	return out
}

// MetricsSnapshot returns the current MetricsSnapshot of every adapter
// that reports one, for exporting onto an external metrics system.
func (m *Manager) MetricsSnapshot() map[models.ChannelType]MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.ChannelType]MetricsSnapshot, len(m.adapters))
	for ct, a := range m.adapters {
		if h, ok := a.(HealthAdapter); ok {
			out[ct] = h.Metrics()
		}
	}
	return out
}
