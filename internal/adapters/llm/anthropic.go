package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	defaultMaxTokens        = 1500
)

// DefaultAnthropicModels is the fallback order used when none is configured.
var DefaultAnthropicModels = []string{
	"claude-sonnet-4-5-20250929",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-sonnet-latest",
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// AnthropicClient is a ModelCaller for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &AnthropicClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
	}
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicResponse struct {
	Content []anthropicBlock    `json:"content"`
	Error   *anthropicErrorBody `json:"error,omitempty"`
}

// CheckCredentials implements domain.CredentialChecker.
func (c *AnthropicClient) CheckCredentials(context.Context) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.ErrMissingCredential
	}
	return nil
}

// Call implements ModelCaller.
func (c *AnthropicClient) Call(ctx context.Context, model string, req domain.LLMRequest) (string, error) {
	if err := c.CheckCredentials(ctx); err != nil {
		return "", err
	}

	var blocks []anthropicBlock
	if req.Image != nil {
		blocks = append(blocks, anthropicBlock{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: req.Image.MediaType,
				Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
			},
		})
	}
	blocks = append(blocks, anthropicBlock{Type: "text", Text: req.User})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var errType string
		if decodeErr == nil && parsed.Error != nil {
			errType = parsed.Error.Type
			msg = parsed.Error.Message
		}
		apiErr := fmt.Errorf("anthropic status %d (%s): %s", resp.StatusCode, errType, msg)

		// The structured error type is authoritative; the message check only
		// covers proxies that drop it.
		if errType == "not_found_error" || (errType == "" && resp.StatusCode == http.StatusNotFound && looksLikeModelNotFound(msg)) {
			return "", &domain.ModelUnavailableError{Model: model, Err: apiErr}
		}
		return "", apiErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode anthropic response: %w", decodeErr)
	}

	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("anthropic returned empty text")
	}
	return text, nil
}
