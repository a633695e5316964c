// Package heartbeat implements the scheduler's self-trigger half: a
// periodic check of the workspace's HEARTBEAT.md for any actionable line,
// injecting a synthetic inbound message only when one is found.
package heartbeat

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nanobot-go/nanobot/pkg/models"
)

const defaultInterval = 30 * time.Minute

// Publisher is the subset of the bus the monitor needs.
type Publisher interface {
	PublishInbound(ctx context.Context, msg models.InboundMessage) error
}

// Config configures the heartbeat monitor.
type Config struct {
	// FilePath is the absolute path to the workspace's HEARTBEAT.md.
	FilePath string
	Interval time.Duration
	Channel  models.ChannelType
	ChatID   string
}

// Monitor ticks at Config.Interval, checking the heartbeat file for an
// actionable line and publishing a synthetic inbound when one exists.
type Monitor struct {
	cfg    Config
	bus    Publisher
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewMonitor constructs a heartbeat monitor publishing onto bus.
func NewMonitor(cfg Config, bus Publisher, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{cfg: cfg, bus: bus, logger: logger.With("component", "heartbeat")}
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.stopped = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.stopped)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.tick(runCtx)
			}
		}
	}()
}

// Stop cancels the tick loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	stopped := m.stopped
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		<-stopped
	}
}

func (m *Monitor) tick(ctx context.Context) {
	line, ok, err := FindActionableLine(m.cfg.FilePath)
	if err != nil {
		m.logger.Error("read heartbeat file failed", "path", m.cfg.FilePath, "error", err)
		return
	}
	if !ok {
		return
	}

	msg := models.InboundMessage{
		Channel:   m.cfg.Channel,
		SenderID:  "heartbeat",
		ChatID:    m.cfg.ChatID,
		Content:   "Heartbeat: " + line,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"source": "heartbeat"},
	}
	if err := m.bus.PublishInbound(ctx, msg); err != nil {
		m.logger.Error("publish heartbeat inbound failed", "error", err)
	}
}

// FindActionableLine returns the first non-blank, non-comment,
// non-empty-checkbox line in the file at path. A missing file is treated
// as having no actionable line, not an error.
func FindActionableLine(path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if isActionable(line) {
			return line, true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func isActionable(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return false
	}
	if strings.HasPrefix(line, "<!--") {
		return false
	}
	if isEmptyCheckbox(line) {
		return false
	}
	return true
}

// isEmptyCheckbox matches markdown checkbox list items with nothing after
// the box, e.g. "- [ ]" or "* [ ]" with only whitespace trailing.
func isEmptyCheckbox(line string) bool {
	trimmed := line
	for _, prefix := range []string{"- [ ]", "* [ ]", "-[ ]", "*[ ]"} {
		if strings.HasPrefix(trimmed, prefix) {
			rest := strings.TrimSpace(trimmed[len(prefix):])
			return rest == ""
		}
	}
	return false
}
