package model

import "strings"

// Article is the structured draft carried from Draft through Finalize.
type Article struct {
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Body            string   `json:"body_mdx"`
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
}

// WordCount returns the number of whitespace-separated words in the body.
func (a Article) WordCount() int {
	return len(strings.Fields(a.Body))
}

// Category is the first tag, or "technology" when the article has none.
func (a Article) Category() string {
	if len(a.Tags) == 0 {
		return "technology"
	}
	return a.Tags[0]
}

// NormalizeTags trims, drops empties, and removes case-insensitive duplicates while keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ImageCandidate is a search hit returned by an image provider.
type ImageCandidate struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail"`
	Alt          string `json:"alt"`
	Attribution  string `json:"attribution"`
	Source       string `json:"source"`
}

// ImageResult is the image finally attached to a published article.
type ImageResult struct {
	Path        string `json:"path"`
	Alt         string `json:"alt"`
	Attribution string `json:"attribution"`
	Source      string `json:"source,omitempty"`
}

// InternalLink is a [[INTERNAL: keyword]] placeholder found in a body.
type InternalLink struct {
	Keyword     string `json:"keyword"`
	Placeholder string `json:"placeholder"`
}

// PublishMeta is the SEO metadata computed during Finalize.
type PublishMeta struct {
	Slug            string         `json:"slug"`
	MetaTitle       string         `json:"meta_title"`
	MetaDescription string         `json:"meta_description"`
	Canonical       string         `json:"canonical"`
	JSONLD          map[string]any `json:"json_ld"`
	InternalLinks   []InternalLink `json:"internal_links"`
}
