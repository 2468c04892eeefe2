// Package briefs turns a completed pipeline run into per-persona production
// briefs: free skip records for unviable segments, formatted briefs for the
// rest.
package briefs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/gate"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

type Service struct {
	formatter      *Formatter
	history        domain.HistoryStore
	publisher      domain.BriefPublisher
	maxConcurrency int
}

// NewService wires the brief workflow. publisher may be nil.
func NewService(llm domain.LLMClient, history domain.HistoryStore, publisher domain.BriefPublisher, maxConcurrency int) *Service {
	return &Service{
		formatter:      NewFormatter(llm),
		history:        history,
		publisher:      publisher,
		maxConcurrency: maxConcurrency,
	}
}

// Generate gates every persona result of the run and formats the viable
// ones. Failures stay local to their persona.
func (s *Service) Generate(ctx context.Context, ws *domain.Workspace, run *domain.PipelineRun) *domain.BriefReport {
	ctx = observability.WithRunID(ctx, string(run.ID))
	log := observability.LoggerFromContext(ctx)
	start := time.Now()

	report := &domain.BriefReport{
		RunID:    run.ID,
		Outcomes: make(map[domain.PersonaName]*domain.BriefOutcome, len(run.Results)),
	}

	names := make([]domain.PersonaName, 0, len(run.Results))
	for name := range run.Results {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}

	for _, name := range names {
		result := run.Results[name]
		g.Go(func() error {
			outcome, called := s.briefFor(ctx, name, result)

			mu.Lock()
			report.Outcomes[name] = outcome
			if called {
				report.FormatCalls++
			}
			mu.Unlock()

			if outcome.Brief != nil {
				s.publish(ctx, run.ID, outcome.Brief)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("briefs generated",
		"personas", len(names),
		"format_calls", report.FormatCalls,
		"elapsed_ms", time.Since(start).Milliseconds())

	if ws != nil {
		ws.SetLastBriefs(report)
	}
	return report
}

// FromHistory regenerates briefs for a saved run.
func (s *Service) FromHistory(ctx context.Context, ws *domain.Workspace, id domain.RunID) (*domain.BriefReport, error) {
	run, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, ws, run), nil
}

// briefFor returns the outcome and whether a formatting call was made.
func (s *Service) briefFor(ctx context.Context, name domain.PersonaName, result *domain.PersonaResult) (*domain.BriefOutcome, bool) {
	log := observability.LoggerFromContext(ctx).With("persona", name)

	decision, err := gate.Evaluate(name, result)
	if err != nil {
		log.Error("gate failed", "error", err)
		return &domain.BriefOutcome{
			Persona:     name,
			State:       domain.StateFailed,
			FailedStage: domain.StageGate,
			Err:         &domain.StageError{Persona: name, Stage: domain.StageGate, Err: err},
		}, false
	}

	if decision.Skipped() {
		log.Info("persona skipped", "fit_score", decision.Skip.FitScore)
		return &domain.BriefOutcome{
			Persona: name,
			State:   domain.StateSkipped,
			Brief: &domain.ProductionBrief{
				Persona:        name,
				FitScore:       decision.Skip.FitScore,
				Recommendation: domain.RecommendDoNotDeploy,
				Skip:           decision.Skip,
			},
		}, false
	}

	req := *decision.Format
	formatted, err := s.formatter.Format(ctx, req)
	if err != nil {
		log.Error("formatting failed", "error", err)
		var parseErr *domain.JSONParseError
		var callErr *domain.LLMCallError
		if !errors.As(err, &parseErr) && !errors.As(err, &callErr) {
			err = &domain.LLMCallError{Stage: domain.StageFormat, Persona: name, Err: err}
		}
		return &domain.BriefOutcome{
			Persona:     name,
			State:       domain.StateFailed,
			FailedStage: domain.StageFormat,
			Err:         &domain.StageError{Persona: name, Stage: domain.StageFormat, Err: err},
		}, true
	}

	rec := req.Recommendation
	if rec == "" {
		rec = domain.BandRecommendation(req.FitScore)
	}
	return &domain.BriefOutcome{
		Persona: name,
		State:   domain.StateFormatted,
		Brief: &domain.ProductionBrief{
			Persona:        name,
			FitScore:       req.FitScore,
			Recommendation: rec,
			Formatted:      formatted,
		},
	}, true
}

func (s *Service) publish(ctx context.Context, runID domain.RunID, brief *domain.ProductionBrief) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBrief(ctx, runID, brief); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to publish brief",
			"persona", brief.Persona,
			"error", err)
	}
}
