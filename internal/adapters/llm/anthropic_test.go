package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/llm"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

func TestAnthropicCallSendsImageAndSystemPrompt(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"  Looks tasty. "},{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	c := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	out, err := c.Call(context.Background(), "model-x", domain.LLMRequest{
		System:    "you are Busy Brenda",
		User:      "rate this",
		MaxTokens: 1500,
		Image:     &domain.Image{Data: []byte{1, 2, 3}, MediaType: domain.MediaTypePNG},
	})
	require.NoError(t, err)
	assert.Equal(t, "Looks tasty.", out)

	assert.Equal(t, "model-x", got["model"])
	assert.Equal(t, "you are Busy Brenda", got["system"])
	assert.EqualValues(t, 1500, got["max_tokens"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	source := img["source"].(map[string]any)
	assert.Equal(t, "AQID", source["data"])
	assert.Equal(t, domain.MediaTypePNG, source["media_type"])
	assert.Equal(t, "rate this", content[1].(map[string]any)["text"])
}

func TestAnthropicTextOnlyRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Call(context.Background(), "m", domain.LLMRequest{User: "hi"})
	require.NoError(t, err)

	content := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	assert.Len(t, content, 1)
	assert.NotZero(t, got["max_tokens"])
}

func TestAnthropicModelNotFoundIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"not_found_error","message":"model: retired"}}`))
	}))
	defer srv.Close()

	c := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Call(context.Background(), "retired", domain.LLMRequest{User: "hi"})

	var unavailable *domain.ModelUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "retired", unavailable.Model)
}

func TestAnthropicOtherStatusIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Call(context.Background(), "m", domain.LLMRequest{User: "hi"})
	require.Error(t, err)

	var unavailable *domain.ModelUnavailableError
	assert.False(t, errors.As(err, &unavailable))
	assert.Contains(t, err.Error(), "slow down")
}

func TestAnthropicEmptyTextIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Call(context.Background(), "m", domain.LLMRequest{User: "hi"})
	assert.Error(t, err)
}

func TestAnthropicWithoutKeyMakesNoRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits++ }))
	defer srv.Close()

	c := llm.NewAnthropicClient(llm.AnthropicConfig{BaseURL: srv.URL})
	_, err := c.Call(context.Background(), "m", domain.LLMRequest{User: "hi"})
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Zero(t, hits)
}
