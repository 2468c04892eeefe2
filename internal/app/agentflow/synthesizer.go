package agentflow

import (
	"context"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/prompts"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// SynthesizerAgent: condenses creative direction into the JSON brief. The
// reply is only accepted if it passes schema validation.
type SynthesizerAgent struct {
	llm domain.LLMClient
}

func NewSynthesizerAgent(llm domain.LLMClient) *SynthesizerAgent {
	return &SynthesizerAgent{llm: llm}
}

func (a *SynthesizerAgent) Name() string {
	return "synthesizer"
}

func (a *SynthesizerAgent) Stage() domain.Stage {
	return domain.StageSynthesis
}

func (a *SynthesizerAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	log := observability.LoggerFromContext(ctx).With("agent", a.Name(), "persona", in.Persona.Name)

	p := prompts.Synthesis(in.Previous)

	reply, err := a.llm.Generate(ctx, domain.LLMRequest{
		Stage:     a.Stage(),
		Persona:   in.Persona.Name,
		System:    p.System,
		User:      p.User,
		MaxTokens: 3000,
	})
	if err != nil {
		return AgentOutput{}, err
	}

	brief, err := domain.ParseSynthesisBrief(reply)
	if err != nil {
		log.Warn("synthesis reply rejected", "error", err)
		return AgentOutput{}, &domain.JSONParseError{Stage: a.Stage(), Persona: in.Persona.Name, Err: err}
	}
	if !brief.AlignsWithBand() {
		log.Warn("recommendation does not match fit score band",
			"fit_score", brief.SegmentFit.FitScore,
			"recommendation", brief.SegmentFit.DeploymentRecommendation)
	}

	return AgentOutput{Reply: reply}, nil
}
