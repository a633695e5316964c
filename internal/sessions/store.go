// Package sessions implements the per-conversation rolling history store:
// an in-memory cache backed by JSON-lines files, one per session key, each
// rewritten in full on Save.
package sessions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// metadataRecord is the first line of every session file.
type metadataRecord struct {
	Type      string         `json:"_type"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Store is the single writer, in-memory-cached session store. The spec's
// concurrency model assumes exactly one writer (the agent loop), so no
// per-session lock is required for correctness; the store's own mutex only
// protects the cache map itself, not individual session mutation.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[string]*models.Session
}

// NewStore returns a Store persisting under dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessions: create dir: %w", err)
	}
	return &Store{dir: dir, cache: make(map[string]*models.Session)}, nil
}

// GetOrCreate returns the cached session for key, loading it from disk on
// first access, or creating a new empty one if no file exists.
func (s *Store) GetOrCreate(key string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.cache[key]; ok {
		return session, nil
	}

	session, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		now := time.Now()
		session = &models.Session{Key: key, CreatedAt: now, UpdatedAt: now}
	}
	s.cache[key] = session
	return session, nil
}

// Save persists session to disk, rewriting its file in full: a metadata
// line followed by one line per message.
func (s *Store) Save(session *models.Session) error {
	path := s.path(session.Key)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("sessions: create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	meta := metadataRecord{
		Type:      "metadata",
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Metadata:  session.Metadata,
	}
	if err := writeJSONLine(w, meta); err != nil {
		f.Close()
		return err
	}
	for _, msg := range session.Messages {
		if err := writeJSONLine(w, msg); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delete removes a session's file and cache entry.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns every session key with a file on disk, without loading any
// history: keys come from the file names alone, via unsafeFilename.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		keys = append(keys, unsafeFilename(strings.TrimSuffix(e.Name(), ".jsonl")))
	}
	return keys, nil
}

func (s *Store) load(key string) (*models.Session, error) {
	path := s.path(key)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	session := &models.Session{Key: key}
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var meta metadataRecord
			if err := json.Unmarshal(line, &meta); err == nil && meta.Type == "metadata" {
				session.CreatedAt = meta.CreatedAt
				session.UpdatedAt = meta.UpdatedAt
				session.Metadata = meta.Metadata
				continue
			}
		}
		var msg models.SessionMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		session.Messages = append(session.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, safeFilename(key)+".jsonl")
}

// safeFilename replaces ":" with "_" and strips characters illegal on
// common filesystems.
func safeFilename(key string) string {
	key = strings.ReplaceAll(key, ":", "_")
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, key)
}

// unsafeFilename is the best-effort inverse of safeFilename for presentation
// purposes only; it cannot recover a colon the original key may have had
// beyond the first replaced occurrence pattern "channel_chatid".
func unsafeFilename(name string) string {
	return strings.Replace(name, "_", ":", 1)
}

func writeJSONLine(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
