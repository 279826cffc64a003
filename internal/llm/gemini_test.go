package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:      "test-key",
		Model:       "gemini-test",
		BaseURL:     srv.URL,
		Temperature: 0.4,
	})
	require.NoError(t, err)
	return client
}

func writeCandidate(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
	})
}

func TestGeminiComplete(t *testing.T) {
	var body map[string]any
	client := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &body))

		writeCandidate(w, `{"days":[]}`)
	})

	text, err := client.Complete(context.Background(), "be a planner", "plan 3 days")
	require.NoError(t, err)
	assert.Equal(t, `{"days":[]}`, text)
	assert.Equal(t, "gemini-test", client.Model())

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "be a planner")
	assert.Contains(t, string(raw), "plan 3 days")
	assert.Contains(t, string(raw), "application/json")
}

func TestGeminiEmptyResponse(t *testing.T) {
	client := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiAPIErrors(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{http.StatusForbidden, "API key"},
		{http.StatusTooManyRequests, "quota"},
		{http.StatusNotFound, "model not found"},
		{http.StatusBadGateway, "status 502"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			client := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.code)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": tt.code, "message": "nope", "status": "FAILED"},
				})
			})

			_, err := client.Complete(context.Background(), "s", "u")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGeminiTimeout(t *testing.T) {
	release := make(chan struct{})
	client := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	client.cfg.Timeout = 50 * time.Millisecond

	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiHealthCheck(t *testing.T) {
	client := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if !strings.HasSuffix(r.URL.Path, "models/gemini-test") {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"models/gemini-test","displayName":"Gemini Test"}`))
	})

	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestGeminiHealthCheckUnauthorized(t *testing.T) {
	client := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	})

	err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is invalid")
}
