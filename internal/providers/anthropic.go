package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// AnthropicProvider talks to Claude models through the official SDK.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider builds a provider from cfg.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: APIKey is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Chat(ctx context.Context, req CompletionRequest) (models.LLMResponse, error) {
	messages, err := anthropicMessages(req.Messages)
	if err != nil {
		return models.LLMResponse{}, fmt.Errorf("anthropic: convert messages: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model(req.Model)),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools, err := anthropicTools(req.Tools)
		if err != nil {
			return models.LLMResponse{}, fmt.Errorf("anthropic: convert tools: %w", err)
		}
		params.Tools = tools
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return models.LLMResponse{
			Content:      fmt.Sprintf("anthropic request failed: %v", err),
			FinishReason: models.FinishError,
		}, nil
	}

	return anthropicResponse(msg), nil
}

func (p *AnthropicProvider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func anthropicMessages(messages []models.SessionMessage) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		switch {
		case len(m.ContentParts) > 0:
			for _, part := range m.ContentParts {
				if part.Type == "text" && part.Text != "" {
					content = append(content, anthropic.NewTextBlock(part.Text))
				}
				if part.Type == "image_url" && part.ImageURL != nil {
					mime, data, ok := parseDataURL(part.ImageURL.URL)
					if ok {
						content = append(content, anthropic.NewImageBlockBase64(mime, data))
					}
				}
			}
		case m.Content != "":
			content = append(content, anthropic.NewTextBlock(m.Content))
		}
		if m.Role == models.RoleTool {
			content = append(content, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		}
		for _, tc := range m.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("tool call %s input: %w", tc.Name, err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		if len(content) == 0 {
			continue
		}

		if m.Role == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(content...))
		} else {
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	return out, nil
}

func parseDataURL(url string) (mime string, data string, ok bool) {
	const prefix = "data:"
	if !strings.HasPrefix(url, prefix) {
		return "", "", false
	}
	rest := url[len(prefix):]
	idx := strings.Index(rest, ";base64,")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+len(";base64,"):], true
}

func anthropicTools(schemas []models.ToolSchema) ([]anthropic.ToolUnionParam, error) {
	var out []anthropic.ToolUnionParam
	for _, s := range schemas {
		var inputSchema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(s.Function.Parameters, &inputSchema); err != nil {
			return nil, fmt.Errorf("tool %s: %w", s.Function.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(inputSchema, s.Function.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(s.Function.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

func anthropicResponse(msg *anthropic.Message) models.LLMResponse {
	resp := models.LLMResponse{
		Usage: models.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: json.RawMessage(variant.Input),
			})
		}
	}

	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = models.FinishToolCalls
	} else if msg.StopReason == "max_tokens" {
		resp.FinishReason = models.FinishLength
	} else {
		resp.FinishReason = models.FinishStop
	}
	return resp
}
