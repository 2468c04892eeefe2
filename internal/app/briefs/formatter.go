package briefs

import (
	"context"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/prompts"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// Formatter is the fourth stage: it turns a viable synthesis brief into a
// production brief.
type Formatter struct {
	llm domain.LLMClient
}

func NewFormatter(llm domain.LLMClient) *Formatter {
	return &Formatter{llm: llm}
}

func (f *Formatter) Format(ctx context.Context, req domain.FormatRequest) (*domain.FormattedBrief, error) {
	log := observability.LoggerFromContext(ctx).With("persona", req.Persona, "fit_score", req.FitScore)

	p := prompts.Formatter(req)
	reply, err := f.llm.Generate(ctx, domain.LLMRequest{
		Stage:     domain.StageFormat,
		Persona:   req.Persona,
		System:    p.System,
		User:      p.User,
		MaxTokens: 2000,
	})
	if err != nil {
		return nil, err
	}

	brief, err := domain.ParseFormattedBrief(reply)
	if err != nil {
		return nil, &domain.JSONParseError{Stage: domain.StageFormat, Persona: req.Persona, Err: err}
	}
	for _, issue := range brief.ContractIssues(req.FitScore) {
		log.Warn("production brief breaks formatter contract", "issue", issue)
	}
	return brief, nil
}
