package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.MaxToolIterations != 20 {
		t.Fatalf("MaxToolIterations = %d, want 20", cfg.Agents.MaxToolIterations)
	}
	if cfg.Workspace.MemoryFile != "MEMORY.md" {
		t.Fatalf("MemoryFile = %q, want MEMORY.md", cfg.Workspace.MemoryFile)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tools.Exec.TimeoutSeconds != 30 {
		t.Fatalf("TimeoutSeconds = %d, want 30", cfg.Tools.Exec.TimeoutSeconds)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
agents:
  model: claude-sonnet-4
  maxTokens: 8192
  maxToolIterations: 5
workspace:
  path: /srv/agent
channels:
  telegram:
    enabled: true
    allowFrom:
      - "12345"
providers:
  anthropic:
    apiKey: sk-test
tools:
  restrictToWorkspace: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.Model != "claude-sonnet-4" {
		t.Fatalf("Model = %q", cfg.Agents.Model)
	}
	if cfg.Agents.MaxToolIterations != 5 {
		t.Fatalf("MaxToolIterations = %d, want 5", cfg.Agents.MaxToolIterations)
	}
	tg, ok := cfg.Channels["telegram"]
	if !ok || !tg.Enabled || len(tg.AllowFrom) != 1 || tg.AllowFrom[0] != "12345" {
		t.Fatalf("Channels[telegram] = %+v, ok=%v", tg, ok)
	}
	an, ok := cfg.Providers["anthropic"]
	if !ok || an.APIKey != "sk-test" {
		t.Fatalf("Providers[anthropic] = %+v, ok=%v", an, ok)
	}
	if !cfg.Tools.RestrictToWorkspace {
		t.Fatalf("RestrictToWorkspace = false, want true")
	}
}

func TestMigrateRestrictToWorkspace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
tools:
  exec:
    timeoutSeconds: 10
    restrictToWorkspace: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Tools.RestrictToWorkspace {
		t.Fatalf("RestrictToWorkspace = false, want migrated true")
	}
	if cfg.Tools.Exec.TimeoutSeconds != 10 {
		t.Fatalf("TimeoutSeconds = %d, want 10", cfg.Tools.Exec.TimeoutSeconds)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
agents:
  bogusField: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("Load: want error for unknown field, got nil")
	}
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("JSONSchema returned empty document")
	}
}
