package skills

import (
	"log/slog"

	agentctx "github.com/nanobot-go/nanobot/internal/context"
)

// Source adapts a Manager to internal/context.SkillSource: eligible skills
// become context.Skill values, with a skill's "always" gating flag doing
// double duty as the "always load full body into the system prompt" signal
// spec.md calls for, since the corpus carries no separate field for it.
type Source struct {
	manager *Manager
	logger  *slog.Logger
}

// NewSource wraps manager for consumption by the context builder.
func NewSource(manager *Manager, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{manager: manager, logger: logger}
}

// Skills implements internal/context.SkillSource.
func (s *Source) Skills() []agentctx.Skill {
	eligible := s.manager.ListEligible()
	out := make([]agentctx.Skill, 0, len(eligible))
	for _, entry := range eligible {
		alwaysLoad := entry.Metadata != nil && entry.Metadata.Always
		body := ""
		if alwaysLoad {
			content, err := s.manager.LoadContent(entry.Name)
			if err != nil {
				s.logger.Warn("failed to load always-load skill body", "skill", entry.Name, "error", err)
			} else {
				body = content
			}
		}
		out = append(out, agentctx.Skill{
			Name:       entry.Name,
			Summary:    entry.Description,
			Body:       body,
			AlwaysLoad: alwaysLoad,
		})
	}
	return out
}
