package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// Size limits mirror the defensive bounds a registry needs regardless of
// which tool is being called, to keep a single misbehaving LLM turn from
// exhausting memory.
const (
	MaxToolNameLength = 256
	MaxParamsSize     = 10 << 20 // 10MB
)

// Registry maps tool names to tool instances and is the sole execution
// entry point the agent loop uses during a turn.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool under its own name, replacing any existing tool of
// the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name; a no-op if absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// ListSchemas produces the OpenAI-function-calling-shaped array the LLM
// provider submits alongside the conversation.
func (r *Registry) ListSchemas() []models.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, models.ToolSchema{
			Type: "function",
			Function: models.ToolDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}

// SetContext calls SetContext on every registered tool that implements
// ContextSetter. The agent loop invokes this once per inbound message,
// before the turn-taking loop begins.
func (r *Registry) SetContext(channel models.ChannelType, chatID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tools {
		if cs, ok := t.(ContextSetter); ok {
			cs.SetContext(channel, chatID)
		}
	}
}

// Execute validates args against name's schema and, if valid, runs the
// tool. It never returns a Go error for a tool-level failure: invalid
// parameters and execution exceptions are both converted into an
// IsError result the agent loop feeds back to the LLM so it can correct
// itself. Execute has no error return: an over-long name, oversized
// arguments or an unknown tool are reported the same way.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) models.ToolResult {
	if len(name) > MaxToolNameLength {
		return errorResult(fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength))
	}
	if len(args) > MaxParamsSize {
		return errorResult(fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxParamsSize))
	}

	tool, ok := r.Get(name)
	if !ok {
		return errorResult(fmt.Sprintf("Error: Tool '%s' not found", name))
	}

	violations, err := ValidateParams(tool.Parameters(), args)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: Invalid parameters for tool '%s': %v", name, err))
	}
	if len(violations) > 0 {
		return errorResult(fmt.Sprintf("Error: Invalid parameters for tool '%s': %s", name, joinErrors(violations)))
	}

	return r.invoke(ctx, tool, name, args)
}

// invoke runs a single tool call with panic recovery, so one misbehaving
// tool can never take down the turn that called it.
func (r *Registry) invoke(ctx context.Context, tool Tool, name string, args json.RawMessage) (result models.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = errorResult(fmt.Sprintf("Error executing %s: tool panicked: %v", name, rec))
		}
	}()

	content, err := tool.Execute(ctx, args)
	if err != nil {
		return errorResult(fmt.Sprintf("Error executing %s: %s", name, err.Error()))
	}
	return models.ToolResult{Content: content}
}

func errorResult(content string) models.ToolResult {
	return models.ToolResult{Content: content, IsError: true}
}

func joinErrors(errs []string) string {
	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}
	return out
}
