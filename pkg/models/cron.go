package models

import "time"

// ScheduleKind discriminates the variants of CronSchedule.
type ScheduleKind string

const (
	ScheduleAt    ScheduleKind = "at"
	ScheduleEvery ScheduleKind = "every"
	ScheduleCron  ScheduleKind = "cron"
)

// CronSchedule is a tagged union over the three ways a job can recur. Only
// the fields relevant to Kind are meaningful.
type CronSchedule struct {
	Kind     ScheduleKind `json:"kind"`
	AtMS     int64        `json:"at_ms,omitempty"`
	EveryMS  int64        `json:"every_ms,omitempty"`
	Expr     string       `json:"expr,omitempty"`
	Timezone string       `json:"timezone,omitempty"`
}

// RunStatus is the outcome recorded the last time a job fired.
type RunStatus string

const (
	RunOK      RunStatus = "ok"
	RunError   RunStatus = "error"
	RunSkipped RunStatus = "skipped"
)

// CronJobState is the mutable, recomputed-on-every-fire half of a job.
type CronJobState struct {
	NextRunAtMS int64     `json:"next_run_at_ms"`
	LastRunAtMS int64     `json:"last_run_at_ms,omitempty"`
	LastStatus  RunStatus `json:"last_status,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// CronPayload is the message a fired job injects into the bus, and where
// it should be delivered.
type CronPayload struct {
	Message string      `json:"message"`
	Deliver bool        `json:"deliver"`
	Channel ChannelType `json:"channel,omitempty"`
	To      string      `json:"to,omitempty"`
}

// CronJob is one scheduled entry owned by the scheduler.
type CronJob struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Enabled         bool         `json:"enabled"`
	Schedule        CronSchedule `json:"schedule"`
	Payload         CronPayload  `json:"payload"`
	State           CronJobState `json:"state"`
	DeleteAfterRun  bool         `json:"delete_after_run"`
	CreatedAt       time.Time    `json:"created_at"`
}
