// Package models holds the wire-level and persisted data shapes shared by
// every subsystem of the runtime: the bus, the agent loop, the tool
// registry, the channel adapters and the scheduler.
package models

import "time"

// ChannelType identifies a messaging transport, or the synthetic "system"
// channel used for spawned tasks and heartbeat turns.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelDiscord  ChannelType = "discord"
	ChannelSlack    ChannelType = "slack"
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelSystem   ChannelType = "system"
	ChannelCLI      ChannelType = "cli"
)

// Media is a single attachment reference carried on an inbound or outbound
// message: either a local path already on disk or a remote URL an adapter
// is expected to resolve before use.
type Media struct {
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// InboundMessage is the immutable envelope produced by a channel adapter or
// by the scheduler. SessionKey uniquely identifies the conversation this
// message belongs to and must never be recomputed from anything but
// Channel and ChatID.
type InboundMessage struct {
	Channel   ChannelType    `json:"channel"`
	SenderID  string         `json:"sender_id"`
	ChatID    string         `json:"chat_id"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Media     []Media        `json:"media,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SessionKey returns the stable identifier of the conversation this message
// belongs to: "channel:chat_id".
func (m InboundMessage) SessionKey() string {
	return string(m.Channel) + ":" + m.ChatID
}

// OutboundMessage is produced by the agent loop (or directly by a tool) and
// consumed by the channel manager's dispatch loop. ReplyTo and Metadata must
// be forwarded to the adapter untouched; some adapters need them for
// threading.
type OutboundMessage struct {
	Channel  ChannelType    `json:"channel"`
	ChatID   string         `json:"chat_id"`
	Content  string         `json:"content"`
	ReplyTo  string         `json:"reply_to,omitempty"`
	Media    []Media        `json:"media,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Role is the author of a session message, mirrored onto the LLM wire
// format unchanged.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)
