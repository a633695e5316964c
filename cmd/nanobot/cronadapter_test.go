package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nanobot-go/nanobot/internal/bus"
	"github.com/nanobot-go/nanobot/internal/config"
	"github.com/nanobot-go/nanobot/internal/cron"
	"github.com/nanobot-go/nanobot/pkg/models"
)

func TestToCronJobConfigEvery(t *testing.T) {
	job := models.CronJob{
		ID:      "job-1",
		Name:    "daily nudge",
		Enabled: true,
		Schedule: models.CronSchedule{
			Kind:    models.ScheduleEvery,
			EveryMS: int64(time.Hour / time.Millisecond),
		},
		Payload: models.CronPayload{
			Message: "check the build",
			Channel: models.ChannelTelegram,
			To:      "chat-42",
		},
	}
	cfg, err := toCronJobConfig(job)
	if err != nil {
		t.Fatalf("toCronJobConfig: %v", err)
	}
	if cfg.Schedule.Every != time.Hour {
		t.Fatalf("Every = %v, want 1h", cfg.Schedule.Every)
	}
	if cfg.Message.Channel != "telegram" || cfg.Message.ChannelID != "chat-42" {
		t.Fatalf("message = %+v", cfg.Message)
	}
}

func TestToCronJobConfigUnsupportedSchedule(t *testing.T) {
	_, err := toCronJobConfig(models.CronJob{ID: "job-2"})
	if err == nil {
		t.Fatalf("expected error for empty schedule kind")
	}
}

func TestCronToolAdapterRoundTrip(t *testing.T) {
	scheduler, err := cron.NewScheduler(config.CronConfig{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	adapter := newCronToolAdapter(scheduler)

	job := models.CronJob{
		ID:      "job-3",
		Name:    "reminder",
		Enabled: true,
		Schedule: models.CronSchedule{Kind: models.ScheduleCron, Expr: "0 9 * * *"},
		Payload: models.CronPayload{Message: "stand up", Channel: models.ChannelDiscord, To: "general"},
	}
	added, err := adapter.AddJob(context.Background(), job)
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if added.ID != "job-3" {
		t.Fatalf("added.ID = %q", added.ID)
	}

	jobs, err := adapter.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-3" {
		t.Fatalf("jobs = %+v", jobs)
	}

	if err := adapter.RemoveJob(context.Background(), "job-3"); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if err := adapter.RemoveJob(context.Background(), "job-3"); err == nil {
		t.Fatalf("expected error removing an already-removed job")
	}
}

func TestBusMessageSenderPublishesInbound(t *testing.T) {
	b := bus.New(slog.Default())
	sender := newBusMessageSender(b)
	err := sender.Send(context.Background(), &config.CronMessageConfig{
		Channel:   "slack",
		ChannelID: "C123",
		Content:   "good morning",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, ok := b.ConsumeInbound(context.Background())
	if !ok {
		t.Fatalf("expected a published inbound message")
	}
	if msg.Channel != models.ChannelSlack || msg.ChatID != "C123" || msg.Content != "good morning" {
		t.Fatalf("msg = %+v", msg)
	}
}
