package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaClient implements ModelClient using the local Ollama API. It needs no credentials.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// OllamaOption configures the Ollama client.
type OllamaOption func(*OllamaClient)

// WithOllamaModel sets the model name.
func WithOllamaModel(model string) OllamaOption {
	return func(c *OllamaClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithOllamaTemperature sets the sampling temperature.
func WithOllamaTemperature(t float64) OllamaOption {
	return func(c *OllamaClient) { c.temperature = t }
}

// WithOllamaHTTPClient replaces the HTTP client.
func WithOllamaHTTPClient(hc *http.Client) OllamaOption {
	return func(c *OllamaClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewOllamaClient creates a new Ollama model client.
func NewOllamaClient(baseURL string, opts ...OllamaOption) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	c := &OllamaClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       "llama3",
		temperature: 0.7,
		httpClient:  NewHTTPClient(120*time.Second, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Complete runs a non-streaming generation against the local server.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	in := ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: ollamaOptions{Temperature: c.temperature},
	}
	var out ollamaResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/api/generate", nil, in, &out); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	switch {
	case out.Error != "":
		return "", fmt.Errorf("ollama: %s", out.Error)
	case out.Response == "":
		return "", errors.New("ollama: empty response")
	}
	return out.Response, nil
}
