package llm

import (
	"context"
	"fmt"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// MockLLM answers every stage with canned, well-formed output so the whole
// workflow can run locally without a provider. Fit scores are fixed per
// persona so that both gate branches are exercised.
type MockLLM struct {
	scores map[domain.PersonaName]int
}

func NewMockLLM() *MockLLM {
	return &MockLLM{
		scores: map[domain.PersonaName]int{
			domain.PersonaBusyBrenda: 8,
			domain.PersonaHungryHiro: 3,
			domain.PersonaUrbanUro:   6,
		},
	}
}

func (m *MockLLM) score(p domain.PersonaName) int {
	if s, ok := m.scores[p]; ok {
		return s
	}
	return 5
}

func (m *MockLLM) Generate(ctx context.Context, req domain.LLMRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	score := m.score(req.Persona)
	rec := domain.BandRecommendation(score)

	switch req.Stage {
	case domain.StageFeedback:
		return fmt.Sprintf("As %s: the food shot is clear and the price is easy to spot. Score: %d/10. Recommendation: %s.", req.Persona, score, rec), nil
	case domain.StageTranslation:
		if score < domain.FormatThreshold {
			return "CREATIVE IS MISALIGNED\nThe portion and framing target families, not solo diners.", nil
		}
		return "CREATIVE FITS SEGMENT\nTighten the headline and make the CTA more prominent.", nil
	case domain.StageSynthesis:
		return fmt.Sprintf(`{"segment_fit_assessment":{"fit_score":%d,"deployment_recommendation":%q,"reasoning":"mock reasoning for %s"},"optimized_copy":{"headline":"Sulit sarap","subheadline":"","body":"","cta":"Order now"},"production_notes":{"better_alternative":"segment-specific creative for %s"},"persona_commentary":"mock"}`,
			score, rec, req.Persona, req.Persona), nil
	case domain.StageFormat:
		return fmt.Sprintf(`{"production_brief":{"decision":%q,"final_copy":{"headline":"Sulit sarap","subheadline":"","body":"","cta":"Order now"},"layout_lock":{"layout":true,"imagery":true,"logo":true},"palette_constraints":["brand red #E31837"],"execution_constraints":["keep existing layout"]}}`, rec), nil
	default:
		return fmt.Sprintf("Ay, good question! Speaking as %s: %q. Tell me more about the offer.", req.Persona, req.User), nil
	}
}
