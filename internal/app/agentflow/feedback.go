package agentflow

import (
	"context"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/prompts"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// FeedbackAgent: the persona looks at the creative and reacts in character.
type FeedbackAgent struct {
	llm domain.LLMClient
}

func NewFeedbackAgent(llm domain.LLMClient) *FeedbackAgent {
	return &FeedbackAgent{llm: llm}
}

func (a *FeedbackAgent) Name() string {
	return "feedback"
}

func (a *FeedbackAgent) Stage() domain.Stage {
	return domain.StageFeedback
}

func (a *FeedbackAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	p := prompts.Feedback(in.Persona, in.Parameters)

	reply, err := a.llm.Generate(ctx, domain.LLMRequest{
		Stage:     a.Stage(),
		Persona:   in.Persona.Name,
		System:    p.System,
		User:      p.User,
		Image:     in.Image,
		MaxTokens: 1500,
	})
	if err != nil {
		return AgentOutput{}, err
	}

	return AgentOutput{Reply: reply}, nil
}
