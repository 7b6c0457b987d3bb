package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yangwenmai/autoblog/internal/model"
)

// Prompt markers. The stub client keys its canned answers off these phrases.
const (
	topicsMarker  = "trending tech topics"
	sourcesMarker = "authoritative sources about"
	articleMarker = "Write an engaging tech article about"
	refineMarker  = "Review and improve this article"
)

// StyleGuide is included in every article prompt.
const StyleGuide = `- Curious, accessible explainer tone
- Sentence-case titles (no clickbait)
- 600-900 words total
- 2-4 H2 sections
- Paragraphs of at most 4 sentences
- One rhetorical question or call to action at the end
- Include [[INTERNAL: keyword]] placeholders for internal links
- Facts grounded in sources`

// BuildTopicsPrompt asks an online model for count trending titles, one per line.
func BuildTopicsPrompt(count int) string {
	return fmt.Sprintf(`List %d %s today. Focus on: AI, gadgets, science, space, how-to guides. Return only topic titles, one per line.`, count, topicsMarker)
}

// BuildSourcesPrompt asks an online model for URL and fact line pairs.
func BuildSourcesPrompt(topic string) string {
	return fmt.Sprintf(`Find 3 %s: %s.
For each source output exactly two lines: the URL on the first line and the key facts on the second line. No numbering, no blank lines.`, sourcesMarker, topic)
}

// BuildArticlePrompt renders the generation prompt for one topic.
func BuildArticlePrompt(topic string, snippets []model.SourceSnippet) string {
	var b strings.Builder
	for i, s := range snippets {
		if i == 3 {
			break
		}
		title := s.Title
		if title == "" {
			title = "Source"
		}
		fmt.Fprintf(&b, "- %s: %s\n", title, truncateRunes(s.Text, 300))
	}

	return fmt.Sprintf(`%s: %s

Sources:
%s
Style Guide:
%s

Output ONLY valid JSON with this exact structure (no markdown fences, no explanation):
{"title": "...", "subtitle": "...", "body_mdx": "...", "meta_description": "...", "tags": ["...", "...", "..."]}

Rules:
- title: at most 70 characters, sentence case
- subtitle: a brief engaging hook
- body_mdx: 600-900 words with 2-4 "## " H2 sections
- meta_description: at most 155 characters
- tags: 3 to 5 relevant tags`, articleMarker, topic, b.String(), StyleGuide)
}

// BuildRefinePrompt asks for a corrected body only.
func BuildRefinePrompt(article model.Article, snippets []model.SourceSnippet) string {
	facts := make([]string, 0, 3)
	for i, s := range snippets {
		if i == 3 {
			break
		}
		facts = append(facts, truncateRunes(s.Text, 200))
	}

	return fmt.Sprintf(`%s:

Title: %s
Body:
%s

Source Facts:
%s

Requirements:
- Check claims against sources
- Remove redundancy and fluff
- Ensure 600-900 words
- Keep a curious, accessible tone
- Maintain 2-4 H2 sections
- Paragraphs of at most 4 sentences
- Fix any grammar issues

Return the corrected body_mdx only.`, refineMarker, article.Title, article.Body, strings.Join(facts, "\n"))
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// truncateRunes truncates s to maxRunes runes and marks the cut.
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return TruncateRunes(s, maxRunes) + "..."
}
