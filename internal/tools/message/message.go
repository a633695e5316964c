// Package message implements the outbound-message tool: it lets the LLM
// proactively send a message to the conversation that triggered the
// current turn, independent of its final reply.
package message

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// Publisher is the minimal bus capability this tool needs.
type Publisher interface {
	PublishOutbound(ctx context.Context, msg models.OutboundMessage) error
}

// Tool sends an OutboundMessage to whichever (channel, chat_id) SetContext
// last recorded. The agent loop calls SetContext before every turn; because
// turns are strictly serialized (spawned tasks included), no locking is
// required for correctness; the mutex keeps SetContext and Execute safe if
// they are ever called from different goroutines.
type Tool struct {
	bus Publisher

	mu      sync.RWMutex
	channel models.ChannelType
	chatID  string
}

// New returns a message tool that publishes through bus.
func New(bus Publisher) *Tool {
	return &Tool{bus: bus}
}

func (t *Tool) SetContext(channel models.ChannelType, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *Tool) Name() string { return "send_message" }
func (t *Tool) Description() string {
	return "Send a message to the current conversation immediately, without waiting for the end of the turn."
}
func (t *Tool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"content": {"type": "string", "minLength": 1}},
		"required": ["content"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}

	t.mu.RLock()
	channel, chatID := t.channel, t.chatID
	t.mu.RUnlock()

	if chatID == "" {
		return "", fmt.Errorf("no active conversation context to send to")
	}

	msg := models.OutboundMessage{Channel: channel, ChatID: chatID, Content: in.Content}
	if err := t.bus.PublishOutbound(ctx, msg); err != nil {
		return "", err
	}
	return "message sent", nil
}
