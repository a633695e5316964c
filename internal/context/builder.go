// Package context assembles the message array submitted to the LLM: a
// system prompt built from identity, bootstrap documents, memory and
// skills, followed by the session's projected history and the current
// turn.
package context

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// sectionDelimiter separates non-empty system prompt sections.
const sectionDelimiter = "\n\n---\n\n"

// DefaultBootstrapFiles is the fixed, ordered list of workspace documents
// folded into the system prompt when present.
var DefaultBootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md", "TOOLS.md", "IDENTITY.md"}

// MemorySource supplies the long-term and daily memory note bodies.
type MemorySource interface {
	LongTerm() (string, error)
	Today() (string, error)
}

// Skill is one loaded skill body.
type Skill struct {
	Name       string
	Summary    string
	Body       string
	AlwaysLoad bool
}

// SkillSource supplies the set of loaded skills.
type SkillSource interface {
	Skills() []Skill
}

// Builder assembles system prompts and per-turn message arrays.
type Builder struct {
	ProductName    string
	WorkspacePath  string
	BootstrapFiles []string
	Memory         MemorySource
	Skills         SkillSource

	// now is overridable for deterministic tests.
	now func() time.Time
}

// NewBuilder returns a Builder rooted at workspacePath.
func NewBuilder(productName, workspacePath string, memory MemorySource, skills SkillSource) *Builder {
	return &Builder{
		ProductName:    productName,
		WorkspacePath:  workspacePath,
		BootstrapFiles: DefaultBootstrapFiles,
		Memory:         memory,
		Skills:         skills,
		now:            time.Now,
	}
}

// BuildSystemPrompt concatenates, in order, the identity block, bootstrap
// documents, memory, active-skill bodies, and a skill summary. Empty
// sections are omitted. When channel/chatID are non-empty a short session
// block is appended.
func (b *Builder) BuildSystemPrompt(channel models.ChannelType, chatID string) string {
	var sections []string

	sections = append(sections, b.identityBlock())

	if bootstrap := b.bootstrapBlock(); bootstrap != "" {
		sections = append(sections, bootstrap)
	}

	if memory := b.memoryBlock(); memory != "" {
		sections = append(sections, memory)
	}

	if b.Skills != nil {
		skills := b.Skills.Skills()
		if active := activeSkillsBlock(skills); active != "" {
			sections = append(sections, active)
		}
		if summary := skillSummaryBlock(skills); summary != "" {
			sections = append(sections, summary)
		}
	}

	if channel != "" && chatID != "" {
		sections = append(sections, fmt.Sprintf("Current conversation: channel=%s chat_id=%s", channel, chatID))
	}

	return strings.Join(nonEmpty(sections), sectionDelimiter)
}

func (b *Builder) identityBlock() string {
	now := b.now
	if now == nil {
		now = time.Now
	}
	return fmt.Sprintf(
		"You are %s, running on %s/%s. Current time: %s. Workspace: %s.\n"+
			"Reply inline for normal conversation. Use the send_message tool only when you need to "+
			"deliver output before the turn completes, such as progress updates during a long tool sequence.",
		b.ProductName, runtime.GOOS, runtime.GOARCH, now().Format(time.RFC3339), b.WorkspacePath,
	)
}

func (b *Builder) bootstrapBlock() string {
	var parts []string
	for _, name := range b.BootstrapFiles {
		data, err := os.ReadFile(filepath.Join(b.WorkspacePath, name))
		if err != nil {
			continue
		}
		parts = append(parts, strings.TrimSpace(string(data)))
	}
	return strings.Join(parts, "\n\n")
}

func (b *Builder) memoryBlock() string {
	if b.Memory == nil {
		return ""
	}
	longTerm, _ := b.Memory.LongTerm()
	today, _ := b.Memory.Today()
	parts := nonEmpty([]string{strings.TrimSpace(longTerm), strings.TrimSpace(today)})
	return strings.Join(parts, "\n\n")
}

func activeSkillsBlock(skills []Skill) string {
	var parts []string
	for _, s := range skills {
		if s.AlwaysLoad {
			parts = append(parts, s.Body)
		}
	}
	return strings.Join(parts, "\n\n")
}

func skillSummaryBlock(skills []Skill) string {
	var lines []string
	for _, s := range skills {
		if s.AlwaysLoad {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Name, s.Summary))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Additional skills available (read the named file to use one):\n" + strings.Join(lines, "\n")
}

// BuildUserTurn produces the current turn's SessionMessage. When media
// contains at least one image/* attachment, Content is left as a
// plain-text fallback and ContentParts carries the ordered
// {image, image, ..., text} sequence the spec requires; non-image media is
// silently dropped.
func (b *Builder) BuildUserTurn(content string, media []models.Media) models.SessionMessage {
	msg := models.SessionMessage{Role: models.RoleUser, Content: content, Timestamp: b.nowOrDefault()}

	var images []models.Media
	for _, m := range media {
		if strings.HasPrefix(m.MimeType, "image/") {
			images = append(images, m)
		}
	}
	if len(images) == 0 {
		return msg
	}

	var parts []models.ContentPart
	for _, img := range images {
		dataURL, err := toDataURL(img)
		if err != nil {
			continue
		}
		parts = append(parts, models.ContentPart{Type: "image_url", ImageURL: &models.ContentImage{URL: dataURL}})
	}
	parts = append(parts, models.ContentPart{Type: "text", Text: content})
	msg.ContentParts = parts
	msg.Attachments = images
	return msg
}

func toDataURL(m models.Media) (string, error) {
	if m.Path == "" {
		return m.URL, nil
	}
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", err
	}
	mime := m.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}

func (b *Builder) nowOrDefault() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AppendAssistantTurn appends an assistant message, including tool calls
// and reasoning content when present, so thinking-capable models see their
// own prior reasoning round-tripped on the next call.
func AppendAssistantTurn(session *models.Session, resp models.LLMResponse, now time.Time) {
	session.Append(models.SessionMessage{
		Role:             models.RoleAssistant,
		Content:          resp.Content,
		Timestamp:        now,
		ToolCalls:        resp.ToolCalls,
		ReasoningContent: resp.ReasoningContent,
	})
}

// AppendToolResult appends a tool-result turn keyed by tool_call_id and
// name, as the wire format requires.
func AppendToolResult(session *models.Session, call models.ToolCall, result models.ToolResult, now time.Time) {
	session.Append(models.SessionMessage{
		Role:       models.RoleTool,
		Content:    result.Content,
		Timestamp:  now,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	})
}
