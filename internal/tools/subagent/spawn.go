// Package subagent implements the spawn tool: it lets the LLM delegate a
// task that runs later as a turn of its own, whose reply is delivered into
// the conversation that spawned it.
package subagent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// Spawner queues task to run as a separate turn and returns immediately;
// the task travels through the bus as a system-originated inbound message,
// and its outcome reaches the origin conversation as that turn's reply, not
// through this call.
type Spawner interface {
	Spawn(ctx context.Context, task string, originChannel models.ChannelType, originChatID string) error
}

// Tool exposes Spawner to the LLM. Like the message tool, it needs to know
// which conversation originated the current turn so the sub-agent's
// eventual completion can be routed back to it.
type Tool struct {
	spawner Spawner

	mu      sync.RWMutex
	channel models.ChannelType
	chatID  string
}

// New returns a spawn tool backed by spawner.
func New(spawner Spawner) *Tool {
	return &Tool{spawner: spawner}
}

func (t *Tool) SetContext(channel models.ChannelType, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *Tool) Name() string { return "spawn_agent" }
func (t *Tool) Description() string {
	return "Delegate a background task to a detached sub-agent. Its result is reported back into this conversation when it finishes."
}
func (t *Tool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"task": {"type": "string", "minLength": 1, "description": "Task description for the sub-agent"}},
		"required": ["task"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Task string `json:"task"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}

	t.mu.RLock()
	channel, chatID := t.channel, t.chatID
	t.mu.RUnlock()

	if err := t.spawner.Spawn(ctx, in.Task, channel, chatID); err != nil {
		return "", err
	}
	return "sub-agent spawned; its result will be reported back into this conversation", nil
}
