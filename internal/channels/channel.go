// Package channels implements the abstract channel adapter contract and the
// manager that supervises a fleet of concrete adapters (telegram, discord,
// slack, whatsapp, websocket), wiring each to the bus.
package channels

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// Adapter is the contract every channel connector implements: start/stop a
// long-running connection and send an outbound message. Construction
// failures are the caller's problem. Start runs the connection (with the
// adapter's reconnect loop, where it has one) and blocks until ctx is
// cancelled, Stop is called or the connection gives up; Manager.Start runs
// each adapter's Start on its own goroutine.
type Adapter interface {
	Type() models.ChannelType
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg models.OutboundMessage) error
}

// HealthAdapter is implemented by adapters that expose connection status.
type HealthAdapter interface {
	Status() Status
	HealthCheck(ctx context.Context) HealthStatus
	Metrics() MetricsSnapshot
}

// Status is the adapter's current connection state.
type Status struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	LastPing  int64  `json:"last_ping,omitempty"`
}

// HealthStatus is the result of an on-demand health probe.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Message   string        `json:"message,omitempty"`
	LastCheck time.Time     `json:"last_check"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// Publisher is the subset of internal/bus.Bus an adapter needs to publish
// inbound messages; kept narrow for testability.
type Publisher interface {
	PublishInbound(ctx context.Context, msg models.InboundMessage) error
}

// AccessCheck reports whether senderID is allowed to reach the agent,
// per spec.md's allow-list contract: empty allowFrom means "allow
// everyone"; a sender ID may be a composite of '|'-joined components
// (e.g. "user:123|handle:alice"), and a match on any component passes.
func AccessCheck(allowFrom []string, senderID string) bool {
	if len(allowFrom) == 0 {
		return true
	}
	components := strings.Split(senderID, "|")
	for _, allowed := range allowFrom {
		for _, c := range components {
			if c == allowed {
				return true
			}
		}
	}
	return false
}

// BuildInbound constructs an InboundMessage and publishes it to the bus,
// after running the access check. Returns false if the sender was denied
// (not an error: a denied sender is routine, not exceptional).
func BuildInbound(ctx context.Context, bus Publisher, channel models.ChannelType, allowFrom []string, senderID, chatID, content string, media []models.Media) (bool, error) {
	if !AccessCheck(allowFrom, senderID) {
		return false, nil
	}
	msg := models.InboundMessage{
		Channel:   channel,
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now(),
		Media:     media,
		Metadata:  map[string]any{"message_id": uuid.NewString()},
	}
	if err := bus.PublishInbound(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}
