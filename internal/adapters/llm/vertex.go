package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// DefaultGeminiModels is the fallback order for the Gemini backends.
var DefaultGeminiModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

// GenAIClient is a ModelCaller on top of google.golang.org/genai. It serves
// both the Gemini API (API key) and Vertex AI (project + location).
type GenAIClient struct {
	client *genai.Client
}

// NewGeminiClient creates a caller for the Gemini API. Without a key the
// caller is still returned, but fails its credential check.
func NewGeminiClient(ctx context.Context, apiKey string) (*GenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &GenAIClient{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GenAIClient{client: client}, nil
}

// NewVertexClient creates a caller based on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, projectID, location string) (*GenAIClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("vertex: project and location must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GenAIClient{client: client}, nil
}

func (g *GenAIClient) CheckCredentials(context.Context) error {
	if g.client == nil {
		return domain.ErrMissingCredential
	}
	return nil
}

// Call implements ModelCaller.
func (g *GenAIClient) Call(ctx context.Context, model string, req domain.LLMRequest) (string, error) {
	if g.client == nil {
		return "", domain.ErrMissingCredential
	}
	var parts []*genai.Part
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MediaType))
	}
	parts = append(parts, genai.NewPartFromText(req.User))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	temp := float32(0.7)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		if isGenAIModelNotFound(err) {
			return "", &domain.ModelUnavailableError{Model: model, Err: err}
		}
		return "", fmt.Errorf("genai generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("genai returned empty text")
	}

	return text, nil
}

func isGenAIModelNotFound(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND"
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusNotFound || apiErrPtr.Status == "NOT_FOUND"
	}
	return looksLikeModelNotFound(err.Error())
}
