package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Recommendation is the deployment decision attached to a synthesis brief.
type Recommendation string

const (
	RecommendDeploy      Recommendation = "DEPLOY"
	RecommendOptimize    Recommendation = "OPTIMIZE"
	RecommendDoNotDeploy Recommendation = "DO_NOT_DEPLOY"
)

const (
	MinFitScore = 1
	MaxFitScore = 10

	// FormatThreshold is the lowest fit score that earns a formatting call.
	FormatThreshold = 5
)

// ParseRecommendation accepts the enum spelled with spaces or hyphens.
func ParseRecommendation(s string) (Recommendation, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Recommendation(norm) {
	case RecommendDeploy, RecommendOptimize, RecommendDoNotDeploy:
		return Recommendation(norm), true
	}
	return "", false
}

// BandRecommendation returns the recommendation documented for a score:
// 8-10 DEPLOY, 5-7 OPTIMIZE, otherwise DO_NOT_DEPLOY.
func BandRecommendation(score int) Recommendation {
	switch {
	case score >= 8:
		return RecommendDeploy
	case score >= FormatThreshold:
		return RecommendOptimize
	default:
		return RecommendDoNotDeploy
	}
}

// ─────────────────────────────────────────────
// Stage-3 synthesis brief
// ─────────────────────────────────────────────

// SegmentFitAssessment is the part of the synthesis brief the gate consumes.
type SegmentFitAssessment struct {
	// FitScore is 0 when the field is absent.
	FitScore                 int
	HasFitScore              bool
	DeploymentRecommendation Recommendation
	Reasoning                string
}

type ProductionNotes struct {
	BetterAlternative string
}

// SynthesisBrief is the validated form of a stage-3 response. Fields the
// gate does not consume are kept raw in Sections.
type SynthesisBrief struct {
	SegmentFit      SegmentFitAssessment
	ProductionNotes ProductionNotes
	Sections        map[string]json.RawMessage
}

// AlignsWithBand reports whether the recommendation matches the score band.
// An absent recommendation is considered aligned.
func (b *SynthesisBrief) AlignsWithBand() bool {
	if b.SegmentFit.DeploymentRecommendation == "" {
		return true
	}
	return b.SegmentFit.DeploymentRecommendation == BandRecommendation(b.SegmentFit.FitScore)
}

type wireSynthesis struct {
	SegmentFit *struct {
		FitScore       json.RawMessage `json:"fit_score"`
		Recommendation *string         `json:"deployment_recommendation"`
		Reasoning      *string         `json:"reasoning"`
	} `json:"segment_fit_assessment"`
	ProductionNotes *struct {
		BetterAlternative *string `json:"better_alternative"`
	} `json:"production_notes"`
}

// ParseSynthesisBrief strictly decodes a stage-3 response. The payload must
// be exactly one JSON object (optionally inside a ```json fence). When
// present, fit_score must be an integer in [1,10] and the recommendation one
// of the enum values. A missing fit_score yields FitScore 0.
func ParseSynthesisBrief(raw string) (*SynthesisBrief, error) {
	payload, err := singleObject(raw)
	if err != nil {
		return nil, err
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(payload, &sections); err != nil {
		return nil, fmt.Errorf("decode synthesis brief: %w", err)
	}

	var w wireSynthesis
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decode synthesis brief: %w", err)
	}

	issues := &ValidationError{}
	out := &SynthesisBrief{Sections: sections}

	if w.SegmentFit != nil {
		fit := w.SegmentFit
		if len(fit.FitScore) > 0 && string(fit.FitScore) != "null" {
			score, err := parseScore(fit.FitScore)
			if err != nil {
				issues.Add(err.Error())
			} else {
				out.SegmentFit.FitScore = score
				out.SegmentFit.HasFitScore = true
			}
		}
		if fit.Recommendation != nil && strings.TrimSpace(*fit.Recommendation) != "" {
			rec, ok := ParseRecommendation(*fit.Recommendation)
			if !ok {
				issues.Add(fmt.Sprintf("segment_fit_assessment.deployment_recommendation %q is not one of DEPLOY, OPTIMIZE, DO_NOT_DEPLOY", *fit.Recommendation))
			}
			out.SegmentFit.DeploymentRecommendation = rec
		}
		if fit.Reasoning != nil {
			out.SegmentFit.Reasoning = strings.TrimSpace(*fit.Reasoning)
		}
	}
	if w.ProductionNotes != nil && w.ProductionNotes.BetterAlternative != nil {
		out.ProductionNotes.BetterAlternative = strings.TrimSpace(*w.ProductionNotes.BetterAlternative)
	}

	if err := issues.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseScore(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("segment_fit_assessment.fit_score must be a number, got %s", string(raw))
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("segment_fit_assessment.fit_score must be an integer, got %s", string(raw))
	}
	score := int(f)
	if score < MinFitScore || score > MaxFitScore {
		return 0, fmt.Errorf("segment_fit_assessment.fit_score %d out of range [%d,%d]", score, MinFitScore, MaxFitScore)
	}
	return score, nil
}

// ─────────────────────────────────────────────
// Gate outputs
// ─────────────────────────────────────────────

const (
	DefaultSkipReason        = "Fit score too low"
	DefaultAlternativeNeeded = "Create segment-specific creative"
)

// SkipRecord is produced without any LLM call for unviable segments.
type SkipRecord struct {
	TargetPersona     PersonaName `json:"target_persona"`
	FitScore          int         `json:"fit_score"`
	SkipReason        string      `json:"skip_reason"`
	AlternativeNeeded string      `json:"alternative_needed"`
	Status            string      `json:"status"`
}

// FormatRequest carries a viable brief to the production formatter stage.
type FormatRequest struct {
	Persona        PersonaName
	BriefJSON      string
	FitScore       int
	Recommendation Recommendation
}

// ─────────────────────────────────────────────
// Stage-4 production brief
// ─────────────────────────────────────────────

type FinalCopy struct {
	Headline    string `json:"headline"`
	Subheadline string `json:"subheadline"`
	Body        string `json:"body"`
	CTA         string `json:"cta"`
}

func (c FinalCopy) Empty() bool {
	return c.Headline == "" && c.Subheadline == "" && c.Body == "" && c.CTA == ""
}

type LayoutLock struct {
	Layout  bool `json:"layout"`
	Imagery bool `json:"imagery"`
	Logo    bool `json:"logo"`
}

// FormattedBrief is the production_brief object emitted by the formatter.
type FormattedBrief struct {
	Decision             Recommendation `json:"decision"`
	FinalCopy            FinalCopy      `json:"final_copy"`
	LayoutLock           LayoutLock     `json:"layout_lock"`
	PaletteConstraints   []string       `json:"palette_constraints"`
	ExecutionConstraints []string       `json:"execution_constraints"`
}

// ParseFormattedBrief decodes a formatter response. The production_brief
// object is mandatory.
func ParseFormattedBrief(raw string) (*FormattedBrief, error) {
	payload, err := singleObject(raw)
	if err != nil {
		return nil, err
	}

	var w struct {
		ProductionBrief *struct {
			Decision             string     `json:"decision"`
			FinalCopy            FinalCopy  `json:"final_copy"`
			LayoutLock           LayoutLock `json:"layout_lock"`
			PaletteConstraints   []string   `json:"palette_constraints"`
			ExecutionConstraints []string   `json:"execution_constraints"`
		} `json:"production_brief"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decode production brief: %w", err)
	}
	if w.ProductionBrief == nil {
		return nil, errors.New("production_brief object is missing")
	}

	pb := w.ProductionBrief
	out := &FormattedBrief{
		FinalCopy:            pb.FinalCopy,
		LayoutLock:           pb.LayoutLock,
		PaletteConstraints:   pb.PaletteConstraints,
		ExecutionConstraints: pb.ExecutionConstraints,
	}
	if strings.TrimSpace(pb.Decision) != "" {
		rec, ok := ParseRecommendation(pb.Decision)
		if !ok {
			return nil, fmt.Errorf("production_brief.decision %q is not a known recommendation", pb.Decision)
		}
		out.Decision = rec
	}
	return out, nil
}

// ContractIssues lists the ways the brief deviates from the formatter
// contract for the given fit score.
func (b *FormattedBrief) ContractIssues(fitScore int) []string {
	var issues []string
	if fitScore >= FormatThreshold && !b.LayoutLock.Layout {
		issues = append(issues, "layout must stay locked for fit scores of 5 or more")
	}
	if b.Decision == RecommendDoNotDeploy {
		if !b.FinalCopy.Empty() {
			issues = append(issues, "DO_NOT_DEPLOY brief must have empty copy fields")
		}
		if len(b.ExecutionConstraints) != 1 {
			issues = append(issues, "DO_NOT_DEPLOY brief must carry a single do-not-produce constraint")
		}
	}
	return issues
}

// ProductionBrief is the per-persona end product: exactly one of Skip or
// Formatted is set.
type ProductionBrief struct {
	Persona        PersonaName     `json:"persona"`
	FitScore       int             `json:"fit_score"`
	Recommendation Recommendation  `json:"recommendation,omitempty"`
	Skip           *SkipRecord     `json:"skip,omitempty"`
	Formatted      *FormattedBrief `json:"production_brief,omitempty"`
}

// BriefOutcome is the gate+format result for one persona.
type BriefOutcome struct {
	Persona     PersonaName
	State       PipelineState
	FailedStage Stage
	Brief       *ProductionBrief
	Err         error
}

// BriefReport aggregates brief outcomes for a run.
type BriefReport struct {
	RunID    RunID
	Outcomes map[PersonaName]*BriefOutcome

	// FormatCalls counts the stage-4 LLM calls that were issued.
	FormatCalls int
}

// ─────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────

// singleObject unwraps an optional markdown fence and checks that the text
// is exactly one JSON object.
func singleObject(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
	}
	if text == "" {
		return nil, errors.New("empty response")
	}
	if text[0] != '{' {
		return nil, errors.New("response is not a JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return bytes.TrimSpace(obj), nil
}
