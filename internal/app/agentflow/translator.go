package agentflow

import (
	"context"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/prompts"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// TranslatorAgent: turns persona feedback into creative direction, with the
// campaign parameters held fixed.
type TranslatorAgent struct {
	llm domain.LLMClient
}

func NewTranslatorAgent(llm domain.LLMClient) *TranslatorAgent {
	return &TranslatorAgent{llm: llm}
}

func (a *TranslatorAgent) Name() string {
	return "translator"
}

func (a *TranslatorAgent) Stage() domain.Stage {
	return domain.StageTranslation
}

func (a *TranslatorAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	p := prompts.Translation(in.Previous, in.Parameters)

	reply, err := a.llm.Generate(ctx, domain.LLMRequest{
		Stage:     a.Stage(),
		Persona:   in.Persona.Name,
		System:    p.System,
		User:      p.User,
		MaxTokens: 2000,
	})
	if err != nil {
		return AgentOutput{}, err
	}

	return AgentOutput{Reply: reply}, nil
}
