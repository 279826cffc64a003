// Package llm holds the language model clients used for roadmap generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/terra-clan/daywise/internal/metrics"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-3-pro-preview"

// ErrEmptyResponse is returned when the model answers without any text
var ErrEmptyResponse = errors.New("model returned an empty response")

// GeminiConfig holds Gemini client configuration
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string // overrides the API endpoint, used by tests and proxies
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

// GeminiClient completes prompts with Google's Gemini API
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiClient creates a Gemini client. The API key is required.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, cfg: cfg}, nil
}

// Model returns the configured model name
func (c *GeminiClient) Model() string {
	return c.cfg.Model
}

// HealthCheck verifies the API key and model by fetching the model's metadata
func (c *GeminiClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.cfg.Model, nil); err != nil {
		return describeError(err)
	}
	return nil
}

// Complete sends one system/user prompt pair and returns the response text.
// JSON output is requested from the model.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if c.cfg.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(c.cfg.Temperature)
	}
	if c.cfg.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = c.cfg.MaxOutputTokens
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(userPrompt), genConfig)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordLLMRequest(c.cfg.Model, "error", elapsed.Seconds())
		return "", describeError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		metrics.RecordLLMRequest(c.cfg.Model, "error", elapsed.Seconds())
		return "", ErrEmptyResponse
	}

	metrics.RecordLLMRequest(c.cfg.Model, "ok", elapsed.Seconds())
	slog.Debug("gemini completion finished",
		"model", c.cfg.Model,
		"duration_ms", elapsed.Milliseconds(),
		"response_bytes", len(text),
	)
	return text, nil
}

// describeError maps API status codes to messages a learner can act on
func describeError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini request failed: %w", err)
	}

	switch apiErr.Code {
	case 400:
		return fmt.Errorf("gemini rejected the request: %w", err)
	case 401, 403:
		return fmt.Errorf("gemini API key is invalid or lacks access: %w", err)
	case 404:
		return fmt.Errorf("gemini model not found: %w", err)
	case 429:
		return fmt.Errorf("gemini quota exceeded, try again later: %w", err)
	default:
		return fmt.Errorf("gemini request failed with status %d: %w", apiErr.Code, err)
	}
}
