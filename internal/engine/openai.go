package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yangwenmai/autoblog/internal/chain"
)

// PerplexityBaseURL is the OpenAI-compatible endpoint of Perplexity's online models.
const PerplexityBaseURL = "https://api.perplexity.ai"

// OpenAIClient implements ModelClient using the OpenAI Chat Completions API.
// It also works with any OpenAI-compatible service (e.g. Perplexity) by setting a custom base URL.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
	httpClient   *http.Client
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAIClient)

// WithModel sets the model name (default: gpt-4o-mini).
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint (default: https://api.openai.com/v1).
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) OpenAIOption {
	return func(c *OpenAIClient) { c.systemPrompt = prompt }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(c *OpenAIClient) { c.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) OpenAIOption {
	return func(c *OpenAIClient) { c.maxTokens = n }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewOpenAIClient creates a new OpenAI model client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     "https://api.openai.com/v1",
		model:       "gpt-4o-mini",
		temperature: 0.7,
		maxTokens:   2000,
		httpClient:  NewHTTPClient(DefaultTimeout, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt, preceded by the system prompt when one is set, and returns the first
// choice. It makes exactly one request.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", chain.ErrMissingCredentials
	}

	messages := make([]chatMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.systemPrompt})
	}
	in := chatRequest{
		Model:       c.model,
		Messages:    append(messages, chatMessage{Role: "user", Content: prompt}),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	var out chatResponse
	err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.apiKey}, in, &out)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai: api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
