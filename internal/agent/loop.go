// Package agent implements the agent loop: the per-inbound-message
// turn-taking state machine that builds context, calls the LLM, dispatches
// tool calls through the registry, and persists session state.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	agentctx "github.com/nanobot-go/nanobot/internal/context"
	"github.com/nanobot-go/nanobot/internal/providers"
	"github.com/nanobot-go/nanobot/internal/sessions"
	"github.com/nanobot-go/nanobot/internal/tools"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// DefaultMaxIterations bounds the turn-taking loop regardless of LLM
// behavior.
const DefaultMaxIterations = 20

// DefaultMaxHistory is the number of trailing session messages projected
// into the LLM request.
const DefaultMaxHistory = 50

// DefaultExhaustionReply is sent when the iteration bound is hit without a
// terminal response.
const DefaultExhaustionReply = "Sorry, I wasn't able to finish that -- it took more steps than I'm allowed. Could you try rephrasing or breaking it into smaller requests?"

// DefaultApologyReply is sent when an unrecoverable error occurs outside
// the turn-taking loop.
const DefaultApologyReply = "Sorry, something went wrong while handling that message."

// Publisher is the bus surface the loop needs to deliver a reply.
type Publisher interface {
	PublishOutbound(ctx context.Context, msg models.OutboundMessage) error
}

// Inbound is the bus surface the loop consumes from; decoupled from
// *bus.Bus so the loop can be driven directly in tests.
type Inbound interface {
	ConsumeInbound(ctx context.Context) (models.InboundMessage, bool)
}

// Config tunes loop behavior. Zero values are replaced by defaults in New.
type Config struct {
	MaxIterations   int
	MaxHistory      int
	Model           string
	ExhaustionReply string
	ApologyReply    string
}

func (c *Config) setDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	if c.ExhaustionReply == "" {
		c.ExhaustionReply = DefaultExhaustionReply
	}
	if c.ApologyReply == "" {
		c.ApologyReply = DefaultApologyReply
	}
}

// Loop is the pump: one long-lived goroutine reading inbound messages and
// processing exactly one at a time, publishing at most one outbound reply
// per inbound message (plus whatever side effects tools produce on their
// own, such as send_message).
type Loop struct {
	cfg Config

	bus      Publisher
	sessions *sessions.Store
	registry *tools.Registry
	builder  *agentctx.Builder
	provider providers.Provider
	logger   *slog.Logger

	now func() time.Time
}

// New builds a Loop from its collaborators. provider resolves to a single
// LLM backend; routing across backends by model name, if needed, happens
// above this package via providers.Registry.
func New(cfg Config, bus Publisher, store *sessions.Store, registry *tools.Registry, builder *agentctx.Builder, provider providers.Provider, logger *slog.Logger) *Loop {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:      cfg,
		bus:      bus,
		sessions: store,
		registry: registry,
		builder:  builder,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Run consumes inbound messages from src until ctx is done or the source is
// closed. A panic or error anywhere in the per-message handling is
// recovered at the top of this loop, so one poisoned message never
// terminates the pump.
func (l *Loop) Run(ctx context.Context, src Inbound) {
	for {
		msg, ok := src.ConsumeInbound(ctx)
		if !ok {
			return
		}
		l.handleSafely(ctx, msg)
	}
}

func (l *Loop) handleSafely(ctx context.Context, msg models.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("agent loop recovered from panic", "panic", r, "channel", msg.Channel, "chat_id", msg.ChatID)
			l.sendApology(ctx, msg)
		}
	}()

	if err := l.handle(ctx, msg); err != nil {
		l.logger.Error("agent loop failed to process inbound message", "error", err, "channel", msg.Channel, "chat_id", msg.ChatID)
		l.sendApology(ctx, msg)
	}
}

func (l *Loop) sendApology(ctx context.Context, msg models.InboundMessage) {
	channel, chatID := originOf(msg)
	_ = l.bus.PublishOutbound(ctx, models.OutboundMessage{
		Channel:  channel,
		ChatID:   chatID,
		Content:  l.cfg.ApologyReply,
		Metadata: msg.Metadata,
	})
}

// originOf returns the (channel, chat_id) a reply to msg should target. For
// a normal message that is msg's own channel/chat_id; for a system message
// (a task published by the spawn tool, or a heartbeat) it is decoded from
// the composite chat_id "{origin_channel}:{origin_chat_id}", so a spawned
// task's reply lands in the conversation that spawned it. A system message
// whose chat_id has no ':' keeps its own channel and chat_id, and the
// heartbeat's "system:heartbeat" decodes to the "system" channel itself.
func originOf(msg models.InboundMessage) (models.ChannelType, string) {
	if msg.Channel != models.ChannelSystem {
		return msg.Channel, msg.ChatID
	}
	channel, chatID, ok := splitOrigin(msg.ChatID)
	if !ok {
		return msg.Channel, msg.ChatID
	}
	return channel, chatID
}

func splitOrigin(composite string) (models.ChannelType, string, bool) {
	idx := strings.Index(composite, ":")
	if idx < 0 {
		return "", "", false
	}
	return models.ChannelType(composite[:idx]), composite[idx+1:], true
}

func (l *Loop) handle(ctx context.Context, msg models.InboundMessage) error {
	channel, chatID := originOf(msg)
	sessionKey := string(channel) + ":" + chatID

	session, err := l.sessions.GetOrCreate(sessionKey)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	// Context-aware tools (send_message, spawn_agent, cron) need to know
	// which conversation they're acting on for the duration of this turn;
	// turns are strictly serialized so a shared registry-wide context is
	// safe.
	l.registry.SetContext(channel, chatID)

	systemPrompt := l.builder.BuildSystemPrompt(channel, chatID)
	userTurn := l.builder.BuildUserTurn(msg.Content, msg.Media)

	finalContent, err := l.runTurn(ctx, session, systemPrompt, userTurn)
	if err != nil {
		return err
	}

	now := l.nowOrDefault()
	session.Append(userTurn)
	session.Append(models.SessionMessage{Role: models.RoleAssistant, Content: finalContent, Timestamp: now})
	if err := l.sessions.Save(session); err != nil {
		l.logger.Error("failed to persist session", "error", err, "session", sessionKey)
	}

	return l.bus.PublishOutbound(ctx, models.OutboundMessage{
		Channel:  channel,
		ChatID:   chatID,
		Content:  finalContent,
		Metadata: msg.Metadata,
	})
}

// runTurn drives the bounded tool-calling loop: call the provider, stop on
// a tool-call-free response, otherwise execute every requested tool and
// feed the results back as tool-role messages. A provider-level transport
// failure is surfaced by the provider as an error response (FinishError)
// rather than a Go error, so it is returned to the user like any other
// reply; only a hard Go error from Chat aborts the turn.
func (l *Loop) runTurn(ctx context.Context, session *models.Session, systemPrompt string, userTurn models.SessionMessage) (string, error) {
	history := session.Tail(l.cfg.MaxHistory)
	messages := make([]models.SessionMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, userTurn)

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		resp, err := l.provider.Chat(ctx, providers.CompletionRequest{
			Model:    l.cfg.Model,
			System:   systemPrompt,
			Messages: messages,
			Tools:    l.registry.ListSchemas(),
		})
		if err != nil {
			return "", fmt.Errorf("provider chat: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		now := l.nowOrDefault()
		messages = append(messages, models.SessionMessage{
			Role:             models.RoleAssistant,
			Content:          resp.Content,
			Timestamp:        now,
			ToolCalls:        resp.ToolCalls,
			ReasoningContent: resp.ReasoningContent,
		})

		for _, call := range resp.ToolCalls {
			result := l.registry.Execute(ctx, call.Name, call.Input)
			if result.IsError {
				toolErr := NewToolError(call.Name, errors.New(result.Content)).WithToolCallID(call.ID)
				l.logger.Warn("tool call failed", "tool", call.Name, "type", toolErr.Type, "retryable", toolErr.Retryable)
			}
			messages = append(messages, models.SessionMessage{
				Role:       models.RoleTool,
				Content:    result.Content,
				Timestamp:  l.nowOrDefault(),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	return l.cfg.ExhaustionReply, nil
}

func (l *Loop) nowOrDefault() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}
