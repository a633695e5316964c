// Package cron implements the cron tool: add/list/remove operations the LLM
// uses to schedule future messages to itself.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// Scheduler is the subset of the scheduler's surface the cron tool drives.
type Scheduler interface {
	AddJob(ctx context.Context, job models.CronJob) (models.CronJob, error)
	ListJobs(ctx context.Context) ([]models.CronJob, error)
	RemoveJob(ctx context.Context, id string) error
}

// Tool exposes add/list/remove to the LLM. Add requires a session context
// so the job can route its replies back to the conversation that created
// it; list and remove do not.
type Tool struct {
	scheduler Scheduler

	mu      sync.RWMutex
	channel models.ChannelType
	chatID  string
}

// New returns a cron tool backed by scheduler.
func New(scheduler Scheduler) *Tool {
	return &Tool{scheduler: scheduler}
}

func (t *Tool) SetContext(channel models.ChannelType, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = channel
	t.chatID = chatID
}

func (t *Tool) Name() string { return "cron" }
func (t *Tool) Description() string {
	return "Manage scheduled jobs: add a one-off or recurring reminder, list existing jobs, or remove one."
}
func (t *Tool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["add", "list", "remove"]},
			"message": {"type": "string", "description": "Message to inject when the job fires (add only)"},
			"every_ms": {"type": "integer", "minimum": 1000, "description": "Recur every N milliseconds (add only)"},
			"cron_expr": {"type": "string", "description": "Cron expression (add only)"},
			"at_ms": {"type": "integer", "description": "Unix ms epoch to fire once (add only)"},
			"id": {"type": "string", "description": "Job id (remove only)"}
		},
		"required": ["action"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Action   string `json:"action"`
		Message  string `json:"message"`
		EveryMS  int64  `json:"every_ms"`
		CronExpr string `json:"cron_expr"`
		AtMS     int64  `json:"at_ms"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}

	switch in.Action {
	case "add":
		return t.add(ctx, in.Message, in.EveryMS, in.CronExpr, in.AtMS)
	case "list":
		return t.list(ctx)
	case "remove":
		if in.ID == "" {
			return "", fmt.Errorf("remove requires an id")
		}
		if err := t.scheduler.RemoveJob(ctx, in.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("removed job %s", in.ID), nil
	default:
		return "", fmt.Errorf("unknown action %q", in.Action)
	}
}

func (t *Tool) add(ctx context.Context, message string, everyMS int64, cronExpr string, atMS int64) (string, error) {
	t.mu.RLock()
	channel, chatID := t.channel, t.chatID
	t.mu.RUnlock()

	if chatID == "" {
		return "", fmt.Errorf("cron add requires an active conversation context")
	}

	var schedule models.CronSchedule
	switch {
	case everyMS > 0:
		schedule = models.CronSchedule{Kind: models.ScheduleEvery, EveryMS: everyMS}
	case cronExpr != "":
		schedule = models.CronSchedule{Kind: models.ScheduleCron, Expr: cronExpr}
	case atMS > 0:
		schedule = models.CronSchedule{Kind: models.ScheduleAt, AtMS: atMS}
	default:
		return "", fmt.Errorf("add requires one of every_ms, cron_expr, or at_ms")
	}

	name := message
	if len(name) > 30 {
		name = name[:30]
	}

	job := models.CronJob{
		Name:     name,
		Enabled:  true,
		Schedule: schedule,
		Payload: models.CronPayload{
			Message: message,
			Deliver: true,
			Channel: channel,
			To:      chatID,
		},
		DeleteAfterRun: schedule.Kind == models.ScheduleAt,
	}

	created, err := t.scheduler.AddJob(ctx, job)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("scheduled job %s (%s)", created.ID, created.Name), nil
}

func (t *Tool) list(ctx context.Context) (string, error) {
	jobs, err := t.scheduler.ListJobs(ctx)
	if err != nil {
		return "", err
	}
	if len(jobs) == 0 {
		return "no jobs scheduled", nil
	}
	var sb strings.Builder
	for _, j := range jobs {
		fmt.Fprintf(&sb, "%s: %s (%s) next=%d\n", j.ID, j.Name, j.Schedule.Kind, j.State.NextRunAtMS)
	}
	return strings.TrimSpace(sb.String()), nil
}
