package engine

import "context"

// ModelClient abstracts LLM calls. Implementations wrap OpenAI-compatible APIs, Anthropic,
// Gemini, Ollama, or the offline stub.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContentExtractor abstracts web content extraction.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (*ExtractedContent, error)
}

// ExtractedContent holds the result of content extraction.
type ExtractedContent struct {
	Title          string      `json:"title"`
	NormalizedText string      `json:"normalized_text"`
	Meta           ContentMeta `json:"content_meta"`
}

// ContentMeta holds metadata about the extracted content.
type ContentMeta struct {
	Author      string `json:"author,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	WordCount   int    `json:"word_count"`
}
