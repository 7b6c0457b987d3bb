package model

import "time"

// Topic source constants
const (
	SourcePerplexity = "perplexity"
	SourceGoogleNews = "google_news"
	SourceRSSFeed    = "rss_feed"
)

// Topic is a candidate subject for an article. It is consumed once per run.
type Topic struct {
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	URL          string    `json:"url,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NewTopic creates a Topic discovered now.
func NewTopic(title, source, url string) Topic {
	return Topic{
		Title:        title,
		Source:       source,
		URL:          url,
		DiscoveredAt: time.Now().UTC(),
	}
}

// MaxSnippetRunes bounds the text carried by a SourceSnippet.
const MaxSnippetRunes = 1000

// SourceSnippet is a piece of reference text attached to one Topic while it is processed.
type SourceSnippet struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"snippet"`
}

// Sources is the outcome of retrieval for one topic.
type Sources struct {
	Snippets []SourceSnippet `json:"sources"`
	// Method names the provider that produced the snippets.
	Method string `json:"method"`
}

// Empty reports whether no usable snippet was retrieved.
func (s Sources) Empty() bool {
	for _, sn := range s.Snippets {
		if sn.Text != "" {
			return false
		}
	}
	return true
}
