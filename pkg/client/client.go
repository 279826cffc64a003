package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/daywise/internal/models"
)

// Client is a Go SDK for the daywise API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout. Synchronous generation waits for
// the model, so keep this above the server's LLM timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new daywise client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Roadmap is a roadmap with its derived progress
type Roadmap struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	TotalDays            int                 `json:"total_days"`
	CreatedAt            time.Time           `json:"created_at"`
	SourceSyllabusName   string              `json:"source_syllabus_name,omitempty"`
	Days                 []Day               `json:"days"`
	TotalTopics          int                 `json:"total_topics"`
	StatusCounts         models.StatusCounts `json:"status_counts"`
	CompletionPercentage float64             `json:"completion_percentage"`
	IsFullyCompleted     bool                `json:"is_fully_completed"`
	HasStarted           bool                `json:"has_started"`
	StatusLabel          string              `json:"status_label"`
}

// Day is one day of a Roadmap
type Day struct {
	DayNumber             int                 `json:"day_number"`
	Date                  string              `json:"date,omitempty"`
	Topics                []models.Topic      `json:"topics"`
	StatusCounts          models.StatusCounts `json:"status_counts"`
	CompletionPercentage  float64             `json:"completion_percentage"`
	IsCompleted           bool                `json:"is_completed"`
	TotalEstimatedMinutes int                 `json:"total_estimated_minutes"`
}

// GenerationState is the server's current generation state
type GenerationState struct {
	Phase     models.GenerationPhase `json:"phase"`
	AttemptID string                 `json:"attempt_id,omitempty"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	Roadmap   *Roadmap               `json:"roadmap,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// APIError is an error returned by the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// GenerateRoadmap generates a roadmap and waits for it
func (c *Client) GenerateRoadmap(ctx context.Context, req models.GenerateRequest) (*Roadmap, error) {
	var roadmap Roadmap
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/roadmaps/generate", req, &roadmap); err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// GenerateRoadmapAsync starts a background generation and returns its
// attempt id. Follow progress with GetGeneration.
func (c *Client) GenerateRoadmapAsync(ctx context.Context, req models.GenerateRequest) (string, error) {
	var result struct {
		AttemptID string `json:"attempt_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/roadmaps/generate?async=true", req, &result); err != nil {
		return "", err
	}
	return result.AttemptID, nil
}

// ListRoadmaps lists roadmaps, newest first
func (c *Client) ListRoadmaps(ctx context.Context) ([]*Roadmap, error) {
	var result struct {
		Roadmaps []*Roadmap `json:"roadmaps"`
		Total    int        `json:"total"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/roadmaps", nil, &result); err != nil {
		return nil, err
	}
	return result.Roadmaps, nil
}

// GetRoadmap retrieves a roadmap by ID
func (c *Client) GetRoadmap(ctx context.Context, id string) (*Roadmap, error) {
	var roadmap Roadmap
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/roadmaps/"+url.PathEscape(id), nil, &roadmap); err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// DeleteRoadmap deletes a roadmap
func (c *Client) DeleteRoadmap(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/roadmaps/"+url.PathEscape(id), nil, nil)
}

// UpdateTopicStatus sets the status of one topic and returns the new roadmap
func (c *Client) UpdateTopicStatus(ctx context.Context, roadmapID, topicID string, status models.TopicStatus) (*Roadmap, error) {
	path := fmt.Sprintf("/api/v1/roadmaps/%s/topics/%s/status", url.PathEscape(roadmapID), url.PathEscape(topicID))

	var roadmap Roadmap
	if err := c.doJSON(ctx, http.MethodPut, path, models.UpdateStatusRequest{Status: string(status)}, &roadmap); err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// GetGeneration returns the current generation state
func (c *Client) GetGeneration(ctx context.Context) (*GenerationState, error) {
	var state GenerationState
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/generation", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ResetGeneration returns the generation state to idle, optionally
// cancelling in-flight attempts
func (c *Client) ResetGeneration(ctx context.Context, cancel bool) error {
	path := "/api/v1/generation"
	if cancel {
		path += "?cancel=true"
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// ListTemplates lists available prompt templates
func (c *Client) ListTemplates(ctx context.Context) ([]*models.PromptTemplate, error) {
	var result struct {
		Templates []*models.PromptTemplate `json:"templates"`
		Total     int                      `json:"total"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/templates", nil, &result); err != nil {
		return nil, err
	}
	return result.Templates, nil
}

// GetTemplate retrieves a prompt template by name
func (c *Client) GetTemplate(ctx context.Context, name string) (*models.PromptTemplate, error) {
	var tmpl models.PromptTemplate
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/templates/"+url.PathEscape(name), nil, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// doJSON sends body as JSON and decodes the envelope's data into out
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	respBody, status, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		if status >= 400 {
			return &APIError{StatusCode: status, Code: "http_error", Message: string(respBody)}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if status >= 400 || !result.Success {
		apiErr := &APIError{StatusCode: status, Code: "unknown", Message: http.StatusText(status)}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}
