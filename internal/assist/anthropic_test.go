package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrandsma/partsync/internal/config"
)

func newTestAnthropic(serverURL string) *AnthropicProvider {
	p := NewAnthropicProvider(config.AssistConfig{
		AnthropicAPIKey: "test-key",
		Model:           "test-model",
		Timeout:         5 * time.Second,
	})
	p.baseURL = serverURL
	return p
}

func TestAnthropicComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"A short summary."}]}`))
	}))
	defer server.Close()

	text, err := newTestAnthropic(server.URL).Complete(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", text)
}

func TestAnthropicComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"Too many requests"}}`))
	}))
	defer server.Close()

	_, err := newTestAnthropic(server.URL).Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestAnthropicComplete_NoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	_, err := newTestAnthropic(server.URL).Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAnthropicComplete_Unreachable(t *testing.T) {
	p := newTestAnthropic("http://127.0.0.1:1")

	_, err := p.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
