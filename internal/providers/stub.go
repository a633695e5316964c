package providers

import (
	"context"

	"github.com/nanobot-go/nanobot/pkg/models"
)

// StubProvider returns a scripted sequence of responses, one per call, and
// is shared by every package's tests that need to drive the agent loop
// deterministically without a live LLM.
type StubProvider struct {
	Responses []models.LLMResponse
	Calls     []CompletionRequest
	call      int
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) Chat(_ context.Context, req CompletionRequest) (models.LLMResponse, error) {
	s.Calls = append(s.Calls, req)
	if s.call >= len(s.Responses) {
		return models.LLMResponse{FinishReason: models.FinishStop}, nil
	}
	resp := s.Responses[s.call]
	s.call++
	return resp, nil
}

// CallCount reports how many times Chat has been invoked.
func (s *StubProvider) CallCount() int { return len(s.Calls) }
