// Package providers implements the single LLM interface the agent loop
// depends on — chat(messages, tools, model) → response — against concrete
// backends (Anthropic, OpenAI). Provider selection (model-name-to-backend
// routing) is Registry's job; each Provider here only knows how to talk to
// one backend.
package providers

import (
	"context"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// CompletionRequest is the normalized request every provider accepts.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []models.SessionMessage
	Tools     []models.ToolSchema
	MaxTokens int
}

// Provider is the interface the agent loop drives. Implementations
// translate CompletionRequest into their own wire format and normalize the
// reply back into models.LLMResponse.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req CompletionRequest) (models.LLMResponse, error)
}

// Registry resolves a model name to the provider that should serve it,
// modeled as a static table of {prefix → provider} the way the corpus's
// provider-routing wrapper does it. It is not part of the core per the
// spec's framing — the core only ever calls Provider.Chat.
type Registry struct {
	byPrefix map[string]Provider
	fallback Provider
}

// NewRegistry builds a registry with no entries; register providers with
// Register, and optionally set a fallback with SetFallback.
func NewRegistry() *Registry {
	return &Registry{byPrefix: make(map[string]Provider)}
}

// Register associates every model whose name starts with prefix with p.
func (r *Registry) Register(prefix string, p Provider) {
	r.byPrefix[prefix] = p
}

// SetFallback sets the provider used when no prefix matches.
func (r *Registry) SetFallback(p Provider) {
	r.fallback = p
}

// Resolve returns the provider registered for model, or the fallback.
func (r *Registry) Resolve(model string) (Provider, bool) {
	for prefix, p := range r.byPrefix {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return p, true
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}
