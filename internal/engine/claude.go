package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yangwenmai/autoblog/internal/chain"
)

const anthropicVersion = "2023-06-01"

// ClaudeClient implements ModelClient using the Anthropic Messages API.
type ClaudeClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// ClaudeOption configures the Claude client.
type ClaudeOption func(*ClaudeClient)

// WithClaudeModel sets the model name.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithClaudeBaseURL overrides the API endpoint.
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(c *ClaudeClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithClaudeTemperature sets the sampling temperature.
func WithClaudeTemperature(t float64) ClaudeOption {
	return func(c *ClaudeClient) { c.temperature = t }
}

// WithClaudeHTTPClient replaces the HTTP client.
func WithClaudeHTTPClient(hc *http.Client) ClaudeOption {
	return func(c *ClaudeClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClaudeClient creates a new Anthropic Claude model client.
func NewClaudeClient(apiKey string, opts ...ClaudeOption) *ClaudeClient {
	c := &ClaudeClient{
		apiKey:      apiKey,
		baseURL:     "https://api.anthropic.com",
		model:       "claude-3-5-haiku-latest",
		temperature: 0.7,
		maxTokens:   2000,
		httpClient:  NewHTTPClient(DefaultTimeout, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message and returns the first text block.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", chain.ErrMissingCredentials
	}

	in := claudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var out claudeResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/v1/messages", headers, in, &out); err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("claude: api error: %s", out.Error.Message)
	}
	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("claude: no text content in response")
}
