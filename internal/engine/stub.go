package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StubExtractor returns mock extraction results (for development/testing).
type StubExtractor struct{}

func (e *StubExtractor) Extract(_ context.Context, url string) (*ExtractedContent, error) {
	text := "This is a stub extracted article about " + url + ". It covers recent developments in software, hardware and research, with quotes from engineers and analysts."
	return &ExtractedContent{
		Title:          "Stub page",
		NormalizedText: text,
		Meta: ContentMeta{
			Author:    "Stub Author",
			WordCount: len(strings.Fields(text)),
		},
	}, nil
}

// StubModelClient returns canned LLM responses (for development/testing).
// It recognizes the prompts built in this package and answers each in the expected shape.
type StubModelClient struct{}

var stubTopics = []string{
	"How small language models run on laptops",
	"What the latest Mars sample return delay means",
	"A practical guide to passkeys",
	"Why battery chemistry is shifting to sodium",
	"Inside the race for quantum error correction",
}

func (m *StubModelClient) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, topicsMarker):
		lines := make([]string, len(stubTopics))
		for i, t := range stubTopics {
			lines[i] = fmt.Sprintf("%d. %s", i+1, t)
		}
		return strings.Join(lines, "\n"), nil

	case strings.Contains(prompt, sourcesMarker):
		return "https://example.com/report\nEngineers reported measurable gains in the latest release.\n" +
			"https://example.org/analysis\nAnalysts expect adoption to grow over the next year.", nil

	case strings.Contains(prompt, articleMarker):
		topic := promptLine(prompt, articleMarker+": ")
		b, _ := json.Marshal(map[string]any{
			"title":            TruncateRunes(topic, 70),
			"subtitle":         "A closer look at what changed and why it matters",
			"body_mdx":         stubBody(topic),
			"meta_description": "An accessible explainer on " + topic + ".",
			"tags":             []string{"technology", "explainer", "news"},
		})
		return string(b), nil

	case strings.Contains(prompt, refineMarker):
		start := strings.Index(prompt, "Body:\n")
		end := strings.Index(prompt, "\n\nSource Facts:")
		if start >= 0 && end > start {
			return strings.TrimSpace(prompt[start+len("Body:\n") : end]), nil
		}
	}

	return "{}", nil
}

func promptLine(prompt, prefix string) string {
	i := strings.Index(prompt, prefix)
	if i < 0 {
		return "technology"
	}
	rest := prompt[i+len(prefix):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func stubBody(topic string) string {
	paragraph := "Teams working on " + topic + " describe steady progress rather than a single breakthrough. " +
		"Each release tightens the loop between research and everyday use, and the results show up in cost, speed and reliability. " +
		"Early adopters report that the hardest part is not the technology itself but changing habits around it."
	sections := []string{"## What changed", "## Why it matters", "## What comes next"}

	var b strings.Builder
	for _, s := range sections {
		b.WriteString(s)
		b.WriteString("\n\n")
		for i := 0; i < 4; i++ {
			b.WriteString(paragraph)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Curious how this will look a year from now? Explore more in [[INTERNAL: " + topic + "]].")
	return b.String()
}
