package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/llm"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

type callerFunc func(ctx context.Context, model string, req domain.LLMRequest) (string, error)

func (f callerFunc) Call(ctx context.Context, model string, req domain.LLMRequest) (string, error) {
	return f(ctx, model, req)
}

type modelLog struct {
	mu     sync.Mutex
	models []string
}

func (l *modelLog) add(m string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.models = append(l.models, m)
}

func TestFallbackMovesOnOnlyForUnavailableModels(t *testing.T) {
	log := &modelLog{}
	caller := callerFunc(func(_ context.Context, model string, _ domain.LLMRequest) (string, error) {
		log.add(model)
		switch model {
		case "a", "b":
			return "", &domain.ModelUnavailableError{Model: model}
		}
		return "reply from " + model, nil
	})

	c, err := llm.NewFallbackClient(caller, llm.FallbackConfig{Models: []string{"a", " b ", "", "c", "d"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, c.Models())

	out, err := c.Generate(context.Background(), domain.LLMRequest{Stage: domain.StageFeedback})
	require.NoError(t, err)
	assert.Equal(t, "reply from c", out)
	assert.Equal(t, []string{"a", "b", "c"}, log.models)
}

func TestFallbackStopsOnOtherErrors(t *testing.T) {
	log := &modelLog{}
	caller := callerFunc(func(_ context.Context, model string, _ domain.LLMRequest) (string, error) {
		log.add(model)
		return "", errors.New("rate limited")
	})

	c, err := llm.NewFallbackClient(caller, llm.FallbackConfig{Models: []string{"a", "b"}})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), domain.LLMRequest{Stage: domain.StageSynthesis, Persona: domain.PersonaUrbanUro})
	var callErr *domain.LLMCallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "a", callErr.Model)
	assert.Equal(t, domain.StageSynthesis, callErr.Stage)
	assert.Equal(t, domain.PersonaUrbanUro, callErr.Persona)
	assert.Equal(t, []string{"a"}, log.models)
}

func TestFallbackAllModelsUnavailable(t *testing.T) {
	caller := callerFunc(func(_ context.Context, model string, _ domain.LLMRequest) (string, error) {
		return "", &domain.ModelUnavailableError{Model: model}
	})
	c, err := llm.NewFallbackClient(caller, llm.FallbackConfig{Models: []string{"a", "b"}})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), domain.LLMRequest{})
	var callErr *domain.LLMCallError
	require.True(t, errors.As(err, &callErr))
	var unavailable *domain.ModelUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "b", unavailable.Model)
}

func TestFallbackAppliesCallTimeout(t *testing.T) {
	caller := callerFunc(func(ctx context.Context, _ string, _ domain.LLMRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c, err := llm.NewFallbackClient(caller, llm.FallbackConfig{Models: []string{"a"}, CallTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), domain.LLMRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFallbackLimiterHonoursCancellation(t *testing.T) {
	caller := callerFunc(func(context.Context, string, domain.LLMRequest) (string, error) {
		return "ok", nil
	})
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	c, err := llm.NewFallbackClient(caller, llm.FallbackConfig{Models: []string{"a"}, Limiter: limiter})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), domain.LLMRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Generate(ctx, domain.LLMRequest{})
	assert.Error(t, err)
}

func TestNewFallbackClientValidates(t *testing.T) {
	_, err := llm.NewFallbackClient(nil, llm.FallbackConfig{Models: []string{"a"}})
	assert.Error(t, err)

	caller := callerFunc(func(context.Context, string, domain.LLMRequest) (string, error) { return "", nil })
	_, err = llm.NewFallbackClient(caller, llm.FallbackConfig{Models: []string{" ", ""}})
	assert.Error(t, err)
}

func TestFallbackDelegatesCredentialCheck(t *testing.T) {
	c, err := llm.NewFallbackClient(llm.NewAnthropicClient(llm.AnthropicConfig{}), llm.FallbackConfig{Models: []string{"a"}})
	require.NoError(t, err)
	assert.ErrorIs(t, c.CheckCredentials(context.Background()), domain.ErrMissingCredential)

	_, err = c.Generate(context.Background(), domain.LLMRequest{})
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}
