package cron

import (
	"context"
	"time"

	"github.com/nanobot-go/nanobot/internal/config"
)

// Schedule is a parsed firing rule: exactly one of an absolute timestamp,
// a recurring interval or a cron expression.
type Schedule struct {
	Kind     string
	CronExpr string
	Every    time.Duration
	At       time.Time
	Timezone string
}

// Job is a scheduled injection of a synthetic inbound message. Firing a job
// does not run the agent directly -- it hands a message to an InboundSender,
// which publishes onto the bus exactly as a channel adapter would, so the
// agent loop picks it up on its next pass.
type Job struct {
	ID       string
	Name     string
	Enabled  bool
	Schedule Schedule
	Payload  *config.CronMessageConfig
	Retry    config.CronRetryConfig

	NextRun    time.Time
	LastRun    time.Time
	LastError  string
	RetryCount int
}

// InboundSender publishes the synthetic inbound message a fired job carries.
// The caller (cmd/nanobot) implements this over the message bus so a cron
// firing looks, from the agent loop's perspective, exactly like a message
// arriving on any other channel.
type InboundSender interface {
	Send(ctx context.Context, message *config.CronMessageConfig) error
}

// InboundSenderFunc adapts a function to an InboundSender.
type InboundSenderFunc func(ctx context.Context, message *config.CronMessageConfig) error

// Send executes the adapted function.
func (f InboundSenderFunc) Send(ctx context.Context, message *config.CronMessageConfig) error {
	return f(ctx, message)
}
