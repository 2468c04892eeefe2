package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

func TestParseSynthesisBrief(t *testing.T) {
	t.Run("full object", func(t *testing.T) {
		b, err := domain.ParseSynthesisBrief(`{
			"detailed_scores": {"clarity": {"score": 7, "notes": "ok"}},
			"segment_fit_assessment": {"fit_score": 7, "deployment_recommendation": "OPTIMIZE", "reasoning": " close "},
			"production_notes": {"better_alternative": "bigger CTA"},
			"unknown_extra": true
		}`)
		require.NoError(t, err)
		assert.Equal(t, 7, b.SegmentFit.FitScore)
		assert.True(t, b.SegmentFit.HasFitScore)
		assert.Equal(t, domain.RecommendOptimize, b.SegmentFit.DeploymentRecommendation)
		assert.Equal(t, "close", b.SegmentFit.Reasoning)
		assert.Equal(t, "bigger CTA", b.ProductionNotes.BetterAlternative)
		assert.Contains(t, b.Sections, "detailed_scores")
		assert.True(t, b.AlignsWithBand())
	})

	t.Run("fenced", func(t *testing.T) {
		b, err := domain.ParseSynthesisBrief("```json\n{\"segment_fit_assessment\":{\"fit_score\":9}}\n```")
		require.NoError(t, err)
		assert.Equal(t, 9, b.SegmentFit.FitScore)
	})

	t.Run("missing score is zero", func(t *testing.T) {
		b, err := domain.ParseSynthesisBrief(`{"segment_fit_assessment":{"reasoning":"n/a"}}`)
		require.NoError(t, err)
		assert.Equal(t, 0, b.SegmentFit.FitScore)
		assert.False(t, b.SegmentFit.HasFitScore)

		b, err = domain.ParseSynthesisBrief(`{}`)
		require.NoError(t, err)
		assert.Equal(t, 0, b.SegmentFit.FitScore)
	})

	t.Run("recommendation spellings", func(t *testing.T) {
		b, err := domain.ParseSynthesisBrief(`{"segment_fit_assessment":{"fit_score":2,"deployment_recommendation":"do not deploy"}}`)
		require.NoError(t, err)
		assert.Equal(t, domain.RecommendDoNotDeploy, b.SegmentFit.DeploymentRecommendation)
	})

	t.Run("misaligned recommendation parses", func(t *testing.T) {
		b, err := domain.ParseSynthesisBrief(`{"segment_fit_assessment":{"fit_score":9,"deployment_recommendation":"DO_NOT_DEPLOY"}}`)
		require.NoError(t, err)
		assert.False(t, b.AlignsWithBand())
	})
}

func TestParseSynthesisBriefRejects(t *testing.T) {
	cases := map[string]string{
		"empty":              "   ",
		"prose":              "Here is your brief: great creative!",
		"array":              `[{"segment_fit_assessment":{"fit_score":5}}]`,
		"two objects":        `{"a":1}{"b":2}`,
		"trailing prose":     `{"segment_fit_assessment":{"fit_score":5}} thanks!`,
		"score too high":     `{"segment_fit_assessment":{"fit_score":11}}`,
		"score too low":      `{"segment_fit_assessment":{"fit_score":0}}`,
		"fractional score":   `{"segment_fit_assessment":{"fit_score":6.5}}`,
		"string score":       `{"segment_fit_assessment":{"fit_score":"7"}}`,
		"bad recommendation": `{"segment_fit_assessment":{"fit_score":7,"deployment_recommendation":"SHIP_IT"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.ParseSynthesisBrief(raw)
			require.Error(t, err)
		})
	}
}

func TestParseSynthesisBriefAggregatesIssues(t *testing.T) {
	_, err := domain.ParseSynthesisBrief(`{"segment_fit_assessment":{"fit_score":42,"deployment_recommendation":"MAYBE"}}`)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Issues, 2)
}

func TestBandRecommendation(t *testing.T) {
	assert.Equal(t, domain.RecommendDoNotDeploy, domain.BandRecommendation(4))
	assert.Equal(t, domain.RecommendOptimize, domain.BandRecommendation(5))
	assert.Equal(t, domain.RecommendOptimize, domain.BandRecommendation(7))
	assert.Equal(t, domain.RecommendDeploy, domain.BandRecommendation(8))
	assert.Equal(t, domain.RecommendDeploy, domain.BandRecommendation(10))
}

func TestParseFormattedBrief(t *testing.T) {
	b, err := domain.ParseFormattedBrief(`{"production_brief":{"decision":"OPTIMIZE","final_copy":{"headline":"H","subheadline":"","body":"","cta":"Order"},"layout_lock":{"layout":true,"imagery":true,"logo":true},"palette_constraints":["red"],"execution_constraints":["keep layout"]}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendOptimize, b.Decision)
	assert.Equal(t, "Order", b.FinalCopy.CTA)
	assert.Empty(t, b.ContractIssues(6))

	_, err = domain.ParseFormattedBrief(`{"brief":{}}`)
	require.Error(t, err)

	_, err = domain.ParseFormattedBrief(`{"production_brief":{"decision":"LATER"}}`)
	require.Error(t, err)
}

func TestFormattedBriefContractIssues(t *testing.T) {
	unlocked := &domain.FormattedBrief{Decision: domain.RecommendOptimize}
	assert.Len(t, unlocked.ContractIssues(6), 1)
	assert.Empty(t, unlocked.ContractIssues(4))

	dnd := &domain.FormattedBrief{
		Decision:             domain.RecommendDoNotDeploy,
		FinalCopy:            domain.FinalCopy{Headline: "should be empty"},
		ExecutionConstraints: []string{"a", "b"},
	}
	assert.Len(t, dnd.ContractIssues(2), 2)
}

func TestRunReportHelpers(t *testing.T) {
	boom := errors.New("boom")
	rep := &domain.RunReport{Outcomes: map[domain.PersonaName]*domain.PersonaOutcome{
		domain.PersonaUrbanUro:   {Err: boom},
		domain.PersonaBusyBrenda: {Result: &domain.PersonaResult{}},
	}}
	assert.Equal(t, 1, rep.Succeeded())
	assert.ErrorIs(t, rep.FirstError(), boom)
}

func TestWorkspaceNewReportClearsBriefs(t *testing.T) {
	ws := domain.NewWorkspace("s1")
	ws.SetLastBriefs(&domain.BriefReport{RunID: "old"})
	ws.SetLastReport(&domain.RunReport{})
	assert.Nil(t, ws.LastBriefs())
	assert.NotNil(t, ws.LastReport())
}
