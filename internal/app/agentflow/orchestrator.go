package agentflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// Orchestrator runs the stage chain for every registered persona against
// one creative. Personas run concurrently; stages within a persona run in
// order, each consuming the previous reply.
type Orchestrator struct {
	llm            domain.LLMClient
	registry       domain.PersonaRegistry
	history        domain.HistoryStore
	agents         []Agent
	maxConcurrency int
	now            func() time.Time
}

type Options struct {
	// MaxConcurrency bounds how many persona chains run at once. Values
	// below 1 mean one chain per persona.
	MaxConcurrency int
}

// NewDefaultOrchestrator constructs a flow with Feedback -> Translator -> Synthesizer.
func NewDefaultOrchestrator(
	llm domain.LLMClient,
	registry domain.PersonaRegistry,
	history domain.HistoryStore,
	opts Options,
) *Orchestrator {
	return NewOrchestrator(llm, registry, history, opts,
		NewFeedbackAgent(llm),
		NewTranslatorAgent(llm),
		NewSynthesizerAgent(llm),
	)
}

func NewOrchestrator(
	llm domain.LLMClient,
	registry domain.PersonaRegistry,
	history domain.HistoryStore,
	opts Options,
	agents ...Agent,
) *Orchestrator {
	return &Orchestrator{
		llm:            llm,
		registry:       registry,
		history:        history,
		agents:         agents,
		maxConcurrency: opts.MaxConcurrency,
		now:            time.Now,
	}
}

type RunInput struct {
	Image      domain.Image
	Parameters domain.Parameters
}

// Run executes the chain for every persona and persists the run when at
// least one persona completed it. The report always holds one outcome per
// registered persona. Errors are only returned for run-level failures:
// invalid input, missing credential, or a failed save.
func (o *Orchestrator) Run(ctx context.Context, ws *domain.Workspace, in RunInput) (*domain.RunReport, error) {
	if len(o.agents) == 0 {
		return nil, fmt.Errorf("no agents configured in orchestrator")
	}
	if len(in.Image.Data) == 0 {
		return nil, domain.ErrEmptyImage
	}
	if in.Image.MediaType != domain.MediaTypePNG && in.Image.MediaType != domain.MediaTypeJPEG {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMedia, in.Image.MediaType)
	}
	if cc, ok := o.llm.(domain.CredentialChecker); ok {
		if err := cc.CheckCredentials(ctx); err != nil {
			return nil, &domain.LLMCallError{Err: err}
		}
	}

	personas := o.registry.All()

	log := observability.LoggerFromContext(ctx)
	log.Info("orchestrator started",
		"personas_count", len(personas),
		"agents_count", len(o.agents),
		"product", in.Parameters.Product)
	start := time.Now()

	run := &domain.PipelineRun{
		Timestamp:  o.now().UTC(),
		Image:      in.Image,
		Parameters: in.Parameters,
		Results:    make(map[domain.PersonaName]*domain.PersonaResult),
		Failures:   make(map[domain.PersonaName]string),
	}
	report := &domain.RunReport{
		Run:      run,
		Outcomes: make(map[domain.PersonaName]*domain.PersonaOutcome, len(personas)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}

	for _, p := range personas {
		g.Go(func() error {
			outcome := o.runPersona(ctx, p, in)

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes[p.Name] = outcome
			if outcome.Err != nil {
				run.Failures[p.Name] = outcome.Err.Error()
			} else {
				run.Results[p.Name] = outcome.Result
			}
			return nil
		})
	}
	_ = g.Wait()

	succeeded := report.Succeeded()
	log.Info("persona chains finished",
		"succeeded", succeeded,
		"failed", len(personas)-succeeded,
		"elapsed_ms", time.Since(start).Milliseconds())

	if succeeded > 0 {
		id, err := o.history.Save(ctx, run)
		if err != nil {
			log.Error("failed to save run", "error", err)
			var perr *domain.PersistenceError
			if !errors.As(err, &perr) {
				err = &domain.PersistenceError{Op: "save", Err: err}
			}
			return nil, err
		}
		run.ID = id
		report.Saved = true
		log.Info("run saved", "run_id", id)
	}

	if ws != nil {
		ws.SetLastReport(report)
	}

	log.Info("orchestrator end")
	return report, nil
}

func (o *Orchestrator) runPersona(ctx context.Context, p domain.Persona, in RunInput) *domain.PersonaOutcome {
	log := observability.LoggerFromContext(ctx).With("persona", p.Name)

	outcome := &domain.PersonaOutcome{Persona: p.Name, State: domain.StatePending}
	result := &domain.PersonaResult{}

	img := in.Image
	agentIn := AgentInput{
		Persona:    p,
		Parameters: in.Parameters,
		Image:      &img,
	}

	for _, ag := range o.agents {
		start := time.Now()
		log.Info("agent run start", "agent", ag.Name())

		out, err := ag.Run(ctx, agentIn)
		if err != nil {
			log.Error("agent failed", "agent", ag.Name(), "error", err)
			outcome.State = domain.StateFailed
			outcome.FailedStage = ag.Stage()
			outcome.Err = &domain.StageError{Persona: p.Name, Stage: ag.Stage(), Err: classify(err, ag.Stage(), p.Name)}
			return outcome
		}

		log.Info("agent run end", "agent", ag.Name(), "elapsed_ms", time.Since(start).Milliseconds())

		switch ag.Stage() {
		case domain.StageFeedback:
			result.PersonaFeedback = out.Reply
			outcome.State = domain.StateStage1Done
		case domain.StageTranslation:
			result.CreativeDirection = out.Reply
			outcome.State = domain.StateStage2Done
		case domain.StageSynthesis:
			result.JSONBrief = out.Reply
			outcome.State = domain.StateStage3Done
		}

		// The output of an agent is the input for the next agent; only the
		// first stage sees the image.
		agentIn.Previous = out.Reply
		agentIn.Image = nil
	}

	outcome.Result = result
	return outcome
}

// classify makes sure every stage failure is one of the typed pipeline errors.
func classify(err error, stage domain.Stage, persona domain.PersonaName) error {
	var callErr *domain.LLMCallError
	var parseErr *domain.JSONParseError
	if errors.As(err, &callErr) || errors.As(err, &parseErr) {
		return err
	}
	return &domain.LLMCallError{Stage: stage, Persona: persona, Err: err}
}
