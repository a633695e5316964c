// Package bus implements the process-local message fabric that decouples
// channel adapters from the agent core: two bounded FIFO queues (inbound,
// outbound) plus a per-channel subscriber registry for outbound fan-out.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// DefaultQueueSize bounds both queues. Producers block on a full queue
// rather than drop messages; this is deliberate back-pressure to the
// originating adapter.
const DefaultQueueSize = 256

// OutboundHandler receives a message dispatched to a subscribed channel. It
// must not panic-propagate into the dispatch loop; the bus itself recovers
// handler panics and logs them so one broken subscriber never stalls
// delivery to the others.
type OutboundHandler func(ctx context.Context, msg models.OutboundMessage) error

// Bus owns the two queues. Construct with New; zero-value Bus is not usable.
type Bus struct {
	logger *slog.Logger

	inbound  chan models.InboundMessage
	outbound chan models.OutboundMessage

	mu   sync.RWMutex
	subs map[models.ChannelType][]OutboundHandler
}

// New creates a Bus with bounded queues of DefaultQueueSize.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		inbound:  make(chan models.InboundMessage, DefaultQueueSize),
		outbound: make(chan models.OutboundMessage, DefaultQueueSize),
		subs:     make(map[models.ChannelType][]OutboundHandler),
	}
}

// PublishInbound enqueues msg. It blocks if the inbound queue is full,
// applying back-pressure to the calling adapter. It never drops a message.
func (b *Bus) PublishInbound(ctx context.Context, msg models.InboundMessage) error {
	select {
	case b.inbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeInbound blocks until an inbound message is available or ctx is
// done. The agent loop is expected to be the sole consumer.
func (b *Bus) ConsumeInbound(ctx context.Context) (models.InboundMessage, bool) {
	select {
	case msg, ok := <-b.inbound:
		return msg, ok
	case <-ctx.Done():
		return models.InboundMessage{}, false
	}
}

// PublishOutbound enqueues msg for dispatch to its channel's subscribers.
func (b *Bus) PublishOutbound(ctx context.Context, msg models.OutboundMessage) error {
	select {
	case b.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscribeOutbound registers handler to receive every outbound message
// published under channel. Multiple handlers may subscribe to the same
// channel; all are invoked.
func (b *Bus) SubscribeOutbound(channel models.ChannelType, handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel] = append(b.subs[channel], handler)
}

// DispatchOutboundLoop reads the outbound queue until ctx is done, routing
// each message to every subscriber registered under msg.Channel. A handler
// error is logged and does not stop the loop or prevent other subscribers
// from running; a channel with no subscriber is logged and the message
// dropped.
func (b *Bus) DispatchOutboundLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-b.outbound:
			if !ok {
				return
			}
			b.dispatch(ctx, msg)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, msg models.OutboundMessage) {
	b.mu.RLock()
	handlers := b.subs[msg.Channel]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Warn("no subscriber for outbound channel, dropping message",
			"channel", msg.Channel, "chat_id", msg.ChatID)
		return
	}

	for _, h := range handlers {
		b.invoke(ctx, h, msg)
	}
}

// invoke calls a handler and recovers panics, matching the failure
// isolation guarantee that a raising subscriber must not terminate the
// dispatch loop.
func (b *Bus) invoke(ctx context.Context, h OutboundHandler, msg models.OutboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("outbound subscriber panicked", "panic", r, "channel", msg.Channel)
		}
	}()
	if err := h(ctx, msg); err != nil {
		b.logger.Error("outbound subscriber failed", "error", err, "channel", msg.Channel)
	}
}
