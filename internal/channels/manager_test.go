package channels

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nanobot-go/nanobot/internal/bus"
	"github.com/nanobot-go/nanobot/pkg/models"
)

type recordingAdapter struct {
	channel models.ChannelType
	mu      sync.Mutex
	sent    []models.OutboundMessage
}

func (a *recordingAdapter) Type() models.ChannelType { return a.channel }
func (a *recordingAdapter) Start(ctx context.Context) error { return nil }
func (a *recordingAdapter) Stop(ctx context.Context) error  { return nil }
func (a *recordingAdapter) Send(ctx context.Context, msg models.OutboundMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, msg)
	return nil
}

func (a *recordingAdapter) messages() []models.OutboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.OutboundMessage, len(a.sent))
	copy(out, a.sent)
	return out
}

func TestSplitOutbound_ShortMessagePassesThrough(t *testing.T) {
	msg := models.OutboundMessage{Channel: models.ChannelDiscord, Content: "hello"}
	parts := splitOutbound(msg)
	if len(parts) != 1 || parts[0].Content != "hello" {
		t.Fatalf("expected single unmodified part, got %+v", parts)
	}
}

func TestSplitOutbound_LongMessageChunksByChannelLimit(t *testing.T) {
	long := strings.Repeat("a ", 1500) // > Discord's 2000-char limit
	msg := models.OutboundMessage{Channel: models.ChannelDiscord, Content: long, Media: []models.Media{{URL: "http://example.com/a.png"}}}
	parts := splitOutbound(msg)
	if len(parts) < 2 {
		t.Fatalf("expected message to be split, got %d part(s)", len(parts))
	}
	for i, p := range parts {
		if len(p.Content) > 2000 {
			t.Errorf("part %d exceeds discord limit: %d chars", i, len(p.Content))
		}
		if i != len(parts)-1 && p.Media != nil {
			t.Errorf("part %d should not carry media (only the last part should)", i)
		}
	}
	if parts[len(parts)-1].Media == nil {
		t.Error("expected media to be attached to the final part")
	}
}

func TestManager_RegisterChunksLongOutboundBeforeSend(t *testing.T) {
	b := bus.New(nil)
	mgr := NewManager(b, nil)
	adapter := &recordingAdapter{channel: models.ChannelDiscord}
	mgr.Register(adapter, 1000, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutboundLoop(ctx)

	long := strings.Repeat("word ", 1000)
	if err := b.PublishOutbound(ctx, models.OutboundMessage{Channel: models.ChannelDiscord, Content: long}); err != nil {
		t.Fatalf("PublishOutbound() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(adapter.messages()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	sent := adapter.messages()
	if len(sent) < 2 {
		t.Fatalf("expected adapter to receive multiple chunked sends, got %d", len(sent))
	}
	for _, m := range sent {
		if len(m.Content) > 2000 {
			t.Errorf("adapter received an over-limit chunk: %d chars", len(m.Content))
		}
	}
}
