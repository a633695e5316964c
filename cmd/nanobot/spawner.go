package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nanobot-go/nanobot/internal/bus"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// agentSpawner implements tools/subagent.Spawner by publishing the
// delegated task back onto the main bus as a system-originated inbound
// message. Its composite chat_id ("{origin_channel}:{origin_chat_id}")
// is the same convention the loop already uses to route a sub-agent
// completion's reply back to the conversation that spawned it, so the
// task runs as an ordinary turn of the same agent loop rather than a
// second, separately-wired instance.
type agentSpawner struct {
	bus *bus.Bus
}

func newAgentSpawner(b *bus.Bus) *agentSpawner {
	return &agentSpawner{bus: b}
}

// Spawn implements tools/subagent.Spawner.
func (s *agentSpawner) Spawn(ctx context.Context, task string, originChannel models.ChannelType, originChatID string) error {
	return s.bus.PublishInbound(ctx, models.InboundMessage{
		Channel:   models.ChannelSystem,
		SenderID:  "subagent",
		ChatID:    fmt.Sprintf("%s:%s", originChannel, originChatID),
		Content:   task,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"source": "subagent"},
	})
}
