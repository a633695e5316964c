package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nanobot-go/nanobot/internal/bus"
	"github.com/nanobot-go/nanobot/internal/config"
	"github.com/nanobot-go/nanobot/internal/cron"
	"github.com/nanobot-go/nanobot/pkg/models"
)

// busMessageSender implements cron.InboundSender by publishing the fired
// job's content as a synthetic inbound message at its configured delivery
// target, per the scheduler's "fire by publishing an inbound" contract.
type busMessageSender struct {
	bus *bus.Bus
}

func newBusMessageSender(b *bus.Bus) *busMessageSender {
	return &busMessageSender{bus: b}
}

func (s *busMessageSender) Send(ctx context.Context, message *config.CronMessageConfig) error {
	return s.bus.PublishInbound(ctx, models.InboundMessage{
		Channel:   models.ChannelType(message.Channel),
		SenderID:  "cron",
		ChatID:    message.ChannelID,
		Content:   message.Content,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"source": "cron"},
	})
}

// cronToolAdapter bridges the cron tool's models.CronJob surface to the
// scheduler's config.CronJobConfig surface. Both sides agree on a single
// job shape -- schedule plus message payload -- so the mapping is a
// straight field translation with no job-type branching.
type cronToolAdapter struct {
	scheduler *cron.Scheduler
}

func newCronToolAdapter(s *cron.Scheduler) *cronToolAdapter {
	return &cronToolAdapter{scheduler: s}
}

func (a *cronToolAdapter) AddJob(ctx context.Context, job models.CronJob) (models.CronJob, error) {
	cfg, err := toCronJobConfig(job)
	if err != nil {
		return models.CronJob{}, err
	}
	j, err := a.scheduler.RegisterJob(cfg)
	if err != nil {
		return models.CronJob{}, err
	}
	return fromCronJob(j), nil
}

func (a *cronToolAdapter) ListJobs(ctx context.Context) ([]models.CronJob, error) {
	jobs := a.scheduler.Jobs()
	out := make([]models.CronJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, fromCronJob(j))
	}
	return out, nil
}

func (a *cronToolAdapter) RemoveJob(ctx context.Context, id string) error {
	if !a.scheduler.UnregisterJob(id) {
		return fmt.Errorf("cron job %q not found", id)
	}
	return nil
}

func toCronJobConfig(job models.CronJob) (config.CronJobConfig, error) {
	cfg := config.CronJobConfig{
		ID:      job.ID,
		Name:    job.Name,
		Enabled: job.Enabled,
		Message: &config.CronMessageConfig{
			Channel:   string(job.Payload.Channel),
			ChannelID: job.Payload.To,
			Content:   job.Payload.Message,
		},
	}
	switch job.Schedule.Kind {
	case models.ScheduleAt:
		cfg.Schedule.At = time.UnixMilli(job.Schedule.AtMS).UTC().Format(time.RFC3339)
	case models.ScheduleEvery:
		cfg.Schedule.Every = time.Duration(job.Schedule.EveryMS) * time.Millisecond
	case models.ScheduleCron:
		cfg.Schedule.Cron = job.Schedule.Expr
	default:
		return config.CronJobConfig{}, fmt.Errorf("cron job %q: unsupported schedule kind %q", job.ID, job.Schedule.Kind)
	}
	cfg.Schedule.Timezone = job.Schedule.Timezone
	return cfg, nil
}

func fromCronJob(j *cron.Job) models.CronJob {
	job := models.CronJob{
		ID:      j.ID,
		Name:    j.Name,
		Enabled: j.Enabled,
		State: models.CronJobState{
			NextRunAtMS: j.NextRun.UnixMilli(),
		},
	}
	if !j.LastRun.IsZero() {
		job.State.LastRunAtMS = j.LastRun.UnixMilli()
	}
	if j.LastError != "" {
		job.State.LastStatus = models.RunError
		job.State.LastError = j.LastError
	} else if !j.LastRun.IsZero() {
		job.State.LastStatus = models.RunOK
	}
	if j.Payload != nil {
		job.Payload = models.CronPayload{
			Message: j.Payload.Content,
			Deliver: true,
			Channel: models.ChannelType(j.Payload.Channel),
			To:      j.Payload.ChannelID,
		}
	}
	return job
}
