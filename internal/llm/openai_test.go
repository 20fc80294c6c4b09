package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "intellimind/backend/internal/errors"
)

func TestOpenAIProvider(t *testing.T) {
	var status int
	var body string
	var gotAuth string
	var gotRequest map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("secret", server.URL+"/v1", Options{Model: "llama3-70b"})
	history := []Message{{Role: "user", Content: "Hello"}}

	t.Run("Success", func(t *testing.T) {
		status = http.StatusOK
		body = `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}]}`

		reply, err := provider.Complete(context.Background(), history)

		require.NoError(t, err)
		assert.Equal(t, "Hi there", reply)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "llama3-70b", gotRequest["model"])
	})

	t.Run("Explicit zero temperature is sent", func(t *testing.T) {
		status = http.StatusOK
		body = `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`
		gotRequest = nil
		zero := NewOpenAIProvider("secret", server.URL+"/v1", Options{Model: "llama3-70b", Temperature: Float32(0)})

		_, err := zero.Complete(context.Background(), history)

		require.NoError(t, err)
		require.Contains(t, gotRequest, "temperature")
		assert.InDelta(t, 0, gotRequest["temperature"], 0.0001)
	})

	t.Run("No choices", func(t *testing.T) {
		status = http.StatusOK
		body = `{"id":"x","object":"chat.completion","choices":[]}`

		_, err := provider.Complete(context.Background(), history)

		kind, ok := app_errors.LLMFailureKindOf(err)
		require.True(t, ok)
		assert.Equal(t, app_errors.LLMMalformed, kind)
	})

	t.Run("Rate limited", func(t *testing.T) {
		status = http.StatusTooManyRequests
		body = `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`

		_, err := provider.Complete(context.Background(), history)

		kind, ok := app_errors.LLMFailureKindOf(err)
		require.True(t, ok)
		assert.Equal(t, app_errors.LLMRateLimited, kind)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		status = http.StatusUnauthorized
		body = `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`

		_, err := provider.Complete(context.Background(), history)

		kind, ok := app_errors.LLMFailureKindOf(err)
		require.True(t, ok)
		assert.Equal(t, app_errors.LLMUnauthorized, kind)
	})
}
