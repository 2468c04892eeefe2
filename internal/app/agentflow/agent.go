package agentflow

import (
	"context"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// AgentInput is what one stage receives. Previous is the reply of the
// stage before it; it is empty for the first stage.
type AgentInput struct {
	Persona    domain.Persona
	Parameters domain.Parameters
	Image      *domain.Image
	Previous   string
}

type AgentOutput struct {
	Reply string
}

// Agent is one stage of the per-persona chain.
type Agent interface {
	Name() string
	Stage() domain.Stage
	Run(ctx context.Context, in AgentInput) (AgentOutput, error)
}
