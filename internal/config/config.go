// Package config loads the runtime's configuration document: agent
// tuning, per-channel adapter settings, per-provider credentials, and tool
// behavior, per spec.md §6.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the top-level configuration document.
type Config struct {
	Agents    AgentsConfig             `yaml:"agents" json:"agents"`
	Workspace WorkspaceConfig          `yaml:"workspace" json:"workspace"`
	Channels  map[string]ChannelConfig `yaml:"channels" json:"channels"`
	Providers map[string]ProviderConfig `yaml:"providers" json:"providers"`
	Tools     ToolsConfig              `yaml:"tools" json:"tools"`
	Cron      CronConfig               `yaml:"cron" json:"cron"`
	Heartbeat HeartbeatConfig          `yaml:"heartbeat" json:"heartbeat"`
	Metrics   MetricsConfig            `yaml:"metrics" json:"metrics"`
}

// MetricsConfig tunes the Prometheus metrics exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// AgentsConfig tunes the agent loop and LLM request shape.
type AgentsConfig struct {
	WorkspacePath     string  `yaml:"workspacePath" json:"workspacePath"`
	Model             string  `yaml:"model" json:"model"`
	MaxTokens         int     `yaml:"maxTokens" json:"maxTokens"`
	Temperature       float64 `yaml:"temperature" json:"temperature"`
	MaxToolIterations int     `yaml:"maxToolIterations" json:"maxToolIterations"`
}

// WorkspaceConfig names the bootstrap document files read from the
// workspace root; empty fields fall back to the spec's default names.
type WorkspaceConfig struct {
	Path         string `yaml:"path" json:"path"`
	AgentsFile   string `yaml:"agentsFile" json:"agentsFile"`
	SoulFile     string `yaml:"soulFile" json:"soulFile"`
	UserFile     string `yaml:"userFile" json:"userFile"`
	IdentityFile string `yaml:"identityFile" json:"identityFile"`
	ToolsFile    string `yaml:"toolsFile" json:"toolsFile"`
	MemoryFile   string `yaml:"memoryFile" json:"memoryFile"`
}

// ChannelConfig is one adapter's configuration sub-object.
type ChannelConfig struct {
	Enabled    bool              `yaml:"enabled" json:"enabled"`
	AllowFrom  []string          `yaml:"allowFrom" json:"allowFrom"`
	MediaDir   string            `yaml:"mediaDir" json:"mediaDir"`
	MaxMediaMB int               `yaml:"maxMediaMB" json:"maxMediaMB"`
	Extra      map[string]string `yaml:"extra" json:"extra"`
}

// ProviderConfig is one LLM provider's credentials and routing hints.
type ProviderConfig struct {
	APIKey       string            `yaml:"apiKey" json:"apiKey"`
	APIBase      string            `yaml:"apiBase" json:"apiBase"`
	ExtraHeaders map[string]string `yaml:"extraHeaders" json:"extraHeaders"`
	DefaultModel string            `yaml:"defaultModel" json:"defaultModel"`
}

// ToolsConfig tunes tool behavior shared across tool implementations.
type ToolsConfig struct {
	RestrictToWorkspace bool          `yaml:"restrictToWorkspace" json:"restrictToWorkspace"`
	Exec                ExecConfig    `yaml:"exec" json:"exec"`
	Web                 WebToolConfig `yaml:"web" json:"web"`
}

// ExecConfig tunes the shell tool.
type ExecConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds" json:"timeoutSeconds"`
}

// WebToolConfig tunes the web search/fetch tools.
type WebToolConfig struct {
	Search WebSearchConfig `yaml:"search" json:"search"`
}

// WebSearchConfig holds the search tool's backend credentials.
type WebSearchConfig struct {
	APIKey   string `yaml:"apiKey" json:"apiKey"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// Load reads and parses the config file at path, applying key migrations
// and defaults. An empty path is not an error: Load returns the default
// Config so the runtime can start from environment variables alone.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}

	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	migrate(raw)

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// migrate relocates obsolete key shapes to their current location before
// strict decoding. The one migration spec.md names explicitly:
// tools.exec.restrictToWorkspace moved to tools.restrictToWorkspace.
func migrate(raw map[string]any) {
	tools, ok := raw["tools"].(map[string]any)
	if !ok {
		return
	}
	exec, ok := tools["exec"].(map[string]any)
	if !ok {
		return
	}
	if v, ok := exec["restrictToWorkspace"]; ok {
		if _, exists := tools["restrictToWorkspace"]; !exists {
			tools["restrictToWorkspace"] = v
		}
		delete(exec, "restrictToWorkspace")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Agents.MaxToolIterations <= 0 {
		cfg.Agents.MaxToolIterations = 20
	}
	if cfg.Agents.MaxTokens <= 0 {
		cfg.Agents.MaxTokens = 4096
	}
	if cfg.Workspace.AgentsFile == "" {
		cfg.Workspace.AgentsFile = "AGENTS.md"
	}
	if cfg.Workspace.SoulFile == "" {
		cfg.Workspace.SoulFile = "SOUL.md"
	}
	if cfg.Workspace.UserFile == "" {
		cfg.Workspace.UserFile = "USER.md"
	}
	if cfg.Workspace.IdentityFile == "" {
		cfg.Workspace.IdentityFile = "IDENTITY.md"
	}
	if cfg.Workspace.ToolsFile == "" {
		cfg.Workspace.ToolsFile = "TOOLS.md"
	}
	if cfg.Workspace.MemoryFile == "" {
		cfg.Workspace.MemoryFile = "MEMORY.md"
	}
	if cfg.Tools.Exec.TimeoutSeconds <= 0 {
		cfg.Tools.Exec.TimeoutSeconds = 30
	}
	if cfg.Channels == nil {
		cfg.Channels = map[string]ChannelConfig{}
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if cfg.Heartbeat.Interval <= 0 {
		cfg.Heartbeat.Interval = 30 * time.Minute
	}
	if cfg.Heartbeat.File == "" {
		cfg.Heartbeat.File = "HEARTBEAT.md"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}
