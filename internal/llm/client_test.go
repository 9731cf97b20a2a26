package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/common"
)

func captureServer(t *testing.T, path string, reply any, got *map[string]any, headers *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if headers != nil {
			*headers = r.Header.Clone()
		}
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaGenerate(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, "/api/generate", map[string]any{"response": "  {\"category\":\"PET\"}\n", "done": true}, &body, nil)

	client, err := NewClient(Config{Provider: "ollama", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, `{"category":"PET"}`, out)
	assert.Equal(t, "mistral", body["model"])
	assert.Equal(t, false, body["stream"])
	assert.Equal(t, "classify", body["prompt"])
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	var headers http.Header
	reply := map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "{}"}}},
	}
	srv := captureServer(t, "/v1/chat/completions", reply, &body, &headers)

	client, err := NewClient(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", body["model"])
}

func TestAnthropicGenerate(t *testing.T) {
	var headers http.Header
	reply := map[string]any{"content": []map[string]any{{"type": "text", "text": "{}"}}}
	srv := captureServer(t, "/v1/messages", reply, nil, &headers)

	client, err := NewClient(Config{Provider: "anthropic", APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, "key", headers.Get("x-api-key"))
	assert.NotEmpty(t, headers.Get("anthropic-version"))
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerateErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		rateLimit bool
		permanent bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, rateLimit: true},
		{name: "bad request", status: http.StatusBadRequest, permanent: true},
		{name: "server error", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			client, err := NewClient(Config{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.rateLimit, errors.Is(err, common.ErrRateLimit))

			var retryable *common.RetryableError
			assert.Equal(t, tt.permanent, errors.As(err, &retryable))
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Provider: "openai"})
	require.Error(t, err)

	_, err = NewClient(Config{Provider: "anthropic"})
	require.Error(t, err)

	_, err = NewClient(Config{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
