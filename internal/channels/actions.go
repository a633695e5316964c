package channels

// MessageAction labels the kind of operation an adapter performed, for
// metrics bucketing. Only Send is exercised by the runtime today; the rest
// of the enum stays in place as the natural set an adapter could report
// against without forcing a metrics schema change later.
type MessageAction string

const (
	ActionSend   MessageAction = "send"
	ActionTyping MessageAction = "typing"
)

// Capabilities declares the features a channel adapter supports. Nothing
// in this package reads it: Manager takes per-channel size limits and
// markdown flavor from the channels/context table instead.
type Capabilities struct {
	MaxMessageLength  int   `json:"max_message_length,omitempty"`
	MaxAttachmentSize int64 `json:"max_attachment_size,omitempty"`
	RichText          bool  `json:"rich_text"`
}
