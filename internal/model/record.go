package model

import "time"

// PublishRecord is an append-only entry describing one published article.
type PublishRecord struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	Timestamp    time.Time `json:"timestamp"`
	SourceMethod string    `json:"source_method"`
	WordCount    int       `json:"word_count"`
}

// IndexEntry is one row of the homepage index file.
type IndexEntry struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Image    string `json:"image"`
}
