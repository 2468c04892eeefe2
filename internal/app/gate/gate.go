// Package gate decides, per persona, whether a synthesis brief is worth a
// paid production-formatting call.
package gate

import (
	"errors"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// Decision holds exactly one of Skip or Format.
type Decision struct {
	Skip   *domain.SkipRecord
	Format *domain.FormatRequest
}

// Skipped reports whether the decision is the free skip path.
func (d Decision) Skipped() bool { return d.Skip != nil }

// Evaluate parses the stored synthesis JSON and routes the persona. A score
// below FormatThreshold, or an explicit DO_NOT_DEPLOY, skips without any LLM
// call; a missing score counts as 0. Unparseable JSON is an error, never a
// silent skip.
func Evaluate(persona domain.PersonaName, result *domain.PersonaResult) (Decision, error) {
	if result == nil {
		return Decision{}, &domain.JSONParseError{Stage: domain.StageGate, Persona: persona, Err: errors.New("no synthesis result")}
	}

	brief, err := domain.ParseSynthesisBrief(result.JSONBrief)
	if err != nil {
		return Decision{}, &domain.JSONParseError{Stage: domain.StageGate, Persona: persona, Err: err}
	}

	score := brief.SegmentFit.FitScore
	rec := brief.SegmentFit.DeploymentRecommendation

	if score < domain.FormatThreshold || rec == domain.RecommendDoNotDeploy {
		return Decision{Skip: skipRecord(persona, brief)}, nil
	}

	return Decision{Format: &domain.FormatRequest{
		Persona:        persona,
		BriefJSON:      result.JSONBrief,
		FitScore:       score,
		Recommendation: rec,
	}}, nil
}

func skipRecord(persona domain.PersonaName, brief *domain.SynthesisBrief) *domain.SkipRecord {
	reason := brief.SegmentFit.Reasoning
	if reason == "" {
		reason = domain.DefaultSkipReason
	}
	alt := brief.ProductionNotes.BetterAlternative
	if alt == "" {
		alt = domain.DefaultAlternativeNeeded
	}
	return &domain.SkipRecord{
		TargetPersona:     persona,
		FitScore:          brief.SegmentFit.FitScore,
		SkipReason:        reason,
		AlternativeNeeded: alt,
		Status:            string(domain.StateSkipped),
	}
}
