package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// ModelCaller performs one provider call against one named model. It
// returns *domain.ModelUnavailableError when the provider does not know the
// model.
type ModelCaller interface {
	Call(ctx context.Context, model string, req domain.LLMRequest) (string, error)
}

type FallbackConfig struct {
	// Models are tried in order.
	Models []string

	// CallTimeout bounds every single attempt. Zero disables it.
	CallTimeout time.Duration

	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter
}

// FallbackClient implements domain.LLMClient over an ordered list of model
// names. Only an unavailable model moves on to the next name; every other
// error is terminal for the call.
type FallbackClient struct {
	caller  ModelCaller
	models  []string
	timeout time.Duration
	limiter *rate.Limiter
}

func NewFallbackClient(caller ModelCaller, cfg FallbackConfig) (*FallbackClient, error) {
	if caller == nil {
		return nil, errors.New("fallback client: caller is required")
	}
	var models []string
	for _, m := range cfg.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil, errors.New("fallback client: at least one model name is required")
	}
	return &FallbackClient{
		caller:  caller,
		models:  models,
		timeout: cfg.CallTimeout,
		limiter: cfg.Limiter,
	}, nil
}

// Generate implements domain.LLMClient.
func (c *FallbackClient) Generate(ctx context.Context, req domain.LLMRequest) (string, error) {
	log := observability.LoggerFromContext(ctx).With(
		"stage", req.Stage,
		"persona", req.Persona,
	)

	var lastUnavailable error
	for _, model := range c.models {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", &domain.LLMCallError{Stage: req.Stage, Persona: req.Persona, Model: model, Err: err}
			}
		}

		start := time.Now()
		text, err := c.attempt(ctx, model, req)
		if err == nil {
			log.Debug("llm call succeeded", "model", model, "elapsed_ms", time.Since(start).Milliseconds())
			return text, nil
		}

		var unavailable *domain.ModelUnavailableError
		if errors.As(err, &unavailable) {
			log.Warn("model unavailable, trying next", "model", model, "error", err)
			lastUnavailable = err
			continue
		}

		log.Error("llm call failed", "model", model, "error", err)
		return "", &domain.LLMCallError{Stage: req.Stage, Persona: req.Persona, Model: model, Err: err}
	}

	return "", &domain.LLMCallError{
		Stage:   req.Stage,
		Persona: req.Persona,
		Err:     fmt.Errorf("no configured model available: %w", lastUnavailable),
	}
}

func (c *FallbackClient) attempt(ctx context.Context, model string, req domain.LLMRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.caller.Call(ctx, model, req)
}

// CheckCredentials delegates to the caller when it can check.
func (c *FallbackClient) CheckCredentials(ctx context.Context) error {
	if cc, ok := c.caller.(domain.CredentialChecker); ok {
		return cc.CheckCredentials(ctx)
	}
	return nil
}

// Models returns the configured fallback order.
func (c *FallbackClient) Models() []string {
	return append([]string(nil), c.models...)
}

// looksLikeModelNotFound is the last-resort detection for providers that do
// not return a structured code.
func looksLikeModelNotFound(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "model") && (strings.Contains(m, "not found") || strings.Contains(m, "not_found"))
}
