package gate_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/gate"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

func result(brief string) *domain.PersonaResult {
	return &domain.PersonaResult{PersonaFeedback: "f", CreativeDirection: "d", JSONBrief: brief}
}

func scored(score int) *domain.PersonaResult {
	return result(fmt.Sprintf(`{"segment_fit_assessment":{"fit_score":%d}}`, score))
}

func TestLowScoresSkip(t *testing.T) {
	for score := 1; score <= 4; score++ {
		d, err := gate.Evaluate(domain.PersonaHungryHiro, scored(score))
		require.NoError(t, err)
		require.True(t, d.Skipped(), "score %d", score)
		assert.Nil(t, d.Format)
		assert.Equal(t, score, d.Skip.FitScore)
		assert.Equal(t, domain.PersonaHungryHiro, d.Skip.TargetPersona)
		assert.Equal(t, "SKIPPED", d.Skip.Status)
	}
}

func TestViableScoresFormat(t *testing.T) {
	for score := 5; score <= 10; score++ {
		res := scored(score)
		d, err := gate.Evaluate(domain.PersonaBusyBrenda, res)
		require.NoError(t, err)
		require.False(t, d.Skipped(), "score %d", score)
		assert.Equal(t, score, d.Format.FitScore)
		assert.Equal(t, res.JSONBrief, d.Format.BriefJSON)
	}
}

func TestThresholdBoundary(t *testing.T) {
	d4, err := gate.Evaluate(domain.PersonaUrbanUro, scored(4))
	require.NoError(t, err)
	d5, err := gate.Evaluate(domain.PersonaUrbanUro, scored(5))
	require.NoError(t, err)

	assert.True(t, d4.Skipped())
	assert.False(t, d5.Skipped())
}

func TestMissingScoreSkipsWithDefaults(t *testing.T) {
	d, err := gate.Evaluate(domain.PersonaBusyBrenda, result(`{"persona_commentary":"meh"}`))
	require.NoError(t, err)
	require.True(t, d.Skipped())
	assert.Equal(t, 0, d.Skip.FitScore)
	assert.Equal(t, domain.DefaultSkipReason, d.Skip.SkipReason)
	assert.Equal(t, domain.DefaultAlternativeNeeded, d.Skip.AlternativeNeeded)
}

func TestSkipCarriesReasoningAndAlternative(t *testing.T) {
	brief := `{"segment_fit_assessment":{"fit_score":3,"deployment_recommendation":"DO_NOT_DEPLOY","reasoning":"wrong portion size"},"production_notes":{"better_alternative":"solo-size creative"}}`

	d, err := gate.Evaluate(domain.PersonaHungryHiro, result(brief))
	require.NoError(t, err)
	require.True(t, d.Skipped())
	assert.Equal(t, &domain.SkipRecord{
		TargetPersona:     domain.PersonaHungryHiro,
		FitScore:          3,
		SkipReason:        "wrong portion size",
		AlternativeNeeded: "solo-size creative",
		Status:            "SKIPPED",
	}, d.Skip)
}

func TestExplicitDoNotDeploySkipsEvenWhenScoreIsViable(t *testing.T) {
	d, err := gate.Evaluate(domain.PersonaUrbanUro, result(`{"segment_fit_assessment":{"fit_score":6,"deployment_recommendation":"DO_NOT_DEPLOY"}}`))
	require.NoError(t, err)
	assert.True(t, d.Skipped())
	assert.Equal(t, 6, d.Skip.FitScore)
}

func TestUnparseableBriefIsAnError(t *testing.T) {
	for name, res := range map[string]*domain.PersonaResult{
		"prose":  result("I think it scores about 7"),
		"range":  result(`{"segment_fit_assessment":{"fit_score":12}}`),
		"absent": nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gate.Evaluate(domain.PersonaBusyBrenda, res)
			var perr *domain.JSONParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, domain.StageGate, perr.Stage)
		})
	}
}
