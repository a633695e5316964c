package config

import "time"

// CronConfig is the scheduler's job list, read from the config document's
// cron.jobs section.
type CronConfig struct {
	Jobs []CronJobConfig `yaml:"jobs" json:"jobs"`
}

// CronJobConfig is one scheduled job entry. Every job has the same shape: a
// schedule and a message payload to inject as a synthetic inbound at a
// channel/chat_id delivery target -- there is no separate webhook or
// handler dispatch path.
type CronJobConfig struct {
	ID       string             `yaml:"id" json:"id"`
	Name     string             `yaml:"name" json:"name"`
	Enabled  bool               `yaml:"enabled" json:"enabled"`
	Schedule CronScheduleConfig `yaml:"schedule" json:"schedule"`
	Message  *CronMessageConfig `yaml:"message,omitempty" json:"message,omitempty"`
	Retry    CronRetryConfig    `yaml:"retry" json:"retry"`
}

// CronScheduleConfig names exactly one of the three schedule kinds spec.md
// §4.7 describes: a one-time timestamp, a recurring interval, or a cron
// expression evaluated via an expression library.
type CronScheduleConfig struct {
	At       string        `yaml:"at,omitempty" json:"at,omitempty"`
	Every    time.Duration `yaml:"every,omitempty" json:"every,omitempty"`
	Cron     string        `yaml:"cron,omitempty" json:"cron,omitempty"`
	Timezone string        `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// CronMessageConfig is the payload of a job that fires a synthetic inbound
// message at a channel/chat_id delivery target.
type CronMessageConfig struct {
	Channel   string         `yaml:"channel" json:"channel"`
	ChannelID string         `yaml:"channelId" json:"channelId"`
	Content   string         `yaml:"content,omitempty" json:"content,omitempty"`
	Template  string         `yaml:"template,omitempty" json:"template,omitempty"`
	Data      map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	Tools     []string       `yaml:"tools,omitempty" json:"tools,omitempty"`
}

// CronRetryConfig tunes a job's retry backoff after a failed run.
type CronRetryConfig struct {
	MaxRetries int           `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	Backoff    time.Duration `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	MaxBackoff time.Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// HeartbeatConfig tunes the periodic HEARTBEAT.md check.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	File     string        `yaml:"file" json:"file"`
}
