package llm

import (
	"context"
	"net/http"
	"strings"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaClient implements the Client interface for a local Ollama server.
type ollamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
}

// newOllamaClient creates a new Ollama API client. No API key is needed.
func newOllamaClient(cfg Config) (Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	model := cfg.Model
	if model == "" {
		model = "mistral"
	}

	return &ollamaClient{
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		httpClient:  newHTTPClient(cfg.Timeout),
	}, nil
}

// ollamaResponse represents the non-streaming /api/generate response.
type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends a prompt to Ollama.
func (c *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"system": systemPrompt,
		"stream": false,
	}
	if c.temperature > 0 {
		requestBody["options"] = map[string]any{"temperature": c.temperature}
	}

	var response ollamaResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, requestBody, &response); err != nil {
		return "", err
	}

	return strings.TrimSpace(response.Response), nil
}
