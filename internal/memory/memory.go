// Package memory implements the two workspace note files the context
// builder folds into every system prompt: a long-term note overwritten in
// full, and a daily note appended to under a date header.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	longTermFilename = "MEMORY.md"
	dailyDateFormat  = "2006-01-02"
)

// Store reads and writes the workspace's memory notes.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memory: create dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// LongTerm returns MEMORY.md's contents, or "" if it does not exist yet.
// Implements internal/context.MemorySource.
func (s *Store) LongTerm() (string, error) {
	return s.readOrEmpty(filepath.Join(s.dir, longTermFilename))
}

// Today returns today's daily note, or "" if none has been written yet.
// Implements internal/context.MemorySource.
func (s *Store) Today() (string, error) {
	return s.readOrEmpty(s.dailyPath(s.now()))
}

// WriteLongTerm overwrites MEMORY.md in full.
func (s *Store) WriteLongTerm(content string) error {
	return os.WriteFile(filepath.Join(s.dir, longTermFilename), []byte(content), 0o644)
}

// AppendDaily appends content to today's note, writing a date header
// ("# YYYY-MM-DD") the first time anything is written on a given day.
func (s *Store) AppendDaily(content string) error {
	now := s.now()
	path := s.dailyPath(now)

	existing, err := s.readOrEmpty(path)
	if err != nil {
		return err
	}

	var b strings.Builder
	if existing == "" {
		b.WriteString("# " + now.Format(dailyDateFormat) + "\n\n")
	} else {
		b.WriteString(existing)
		if !strings.HasSuffix(existing, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(content)
	b.WriteString("\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func (s *Store) dailyPath(t time.Time) string {
	return filepath.Join(s.dir, t.Format(dailyDateFormat)+".md")
}

func (s *Store) readOrEmpty(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
