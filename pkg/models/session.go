package models

import (
	"encoding/json"
	"time"
)

// SessionMessage is one entry in a session's rolling history. ToolCalls and
// ReasoningContent are only ever set on assistant-authored entries, and
// ToolCallID/ToolName only on tool-authored ones.
type SessionMessage struct {
	Role             Role            `json:"role"`
	Content          string          `json:"content"`
	Timestamp        time.Time       `json:"timestamp"`
	ToolCalls        []ToolCall      `json:"tool_calls,omitempty"`
	ReasoningContent string          `json:"reasoning_content,omitempty"`
	ToolCallID       string          `json:"tool_call_id,omitempty"`
	ToolName         string          `json:"tool_name,omitempty"`
	Attachments      []Media         `json:"attachments,omitempty"`
	// ContentParts holds a heterogeneous user turn (text interleaved with
	// inline images) when non-empty. When set, providers must prefer it
	// over Content, which is left populated as a plain-text fallback.
	ContentParts []ContentPart   `json:"content_parts,omitempty"`
	Extra        json.RawMessage `json:"extra,omitempty"`
}

// Session is the per-conversation rolling history keyed by SessionKey
// ("channel:chat_id"). Created on the first inbound message for a key,
// appended to on every completed turn, deleted only on explicit request.
// There is no automatic eviction of old sessions.
type Session struct {
	Key       string           `json:"key"`
	Messages  []SessionMessage `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// Append adds a message to the session and bumps UpdatedAt.
func (s *Session) Append(msg SessionMessage) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = msg.Timestamp
}

// Tail returns the last n messages as stored, tool calls and reasoning
// content included; n <= 0 returns the whole history. The result shares
// the session's backing array.
func (s *Session) Tail(n int) []SessionMessage {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
