// Package tools implements the uniform, schema-validated capability
// interface the agent loop exposes to the LLM: filesystem, shell, web,
// scheduling, sub-agent spawn and outbound messaging all present the same
// four-aspect contract through this package's Registry.
package tools

import (
	"context"
	"encoding/json"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// Tool is the capability tuple the spec describes: a stable name used by
// the LLM, a human-prose description folded into the function schema, a
// JSON-Schema parameter contract, and an execute body that may suspend.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ContextSetter is an optional capability a tool may implement when its
// side effects need to target the (channel, chat_id) that triggered the
// current turn — outbound-message, sub-agent-spawn and cron tools are the
// canonical examples. Just before each turn the agent loop calls
// Registry.SetContext, which forwards to every tool that implements it.
// This is safe only because turns are strictly serialized by the bus's
// single-consumer agent loop — do not call tools concurrently across turns
// without revisiting this assumption.
type ContextSetter interface {
	SetContext(channel models.ChannelType, chatID string)
}
