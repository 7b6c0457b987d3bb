package publish

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yangwenmai/autoblog/internal/model"
)

var internalLinkRe = regexp.MustCompile(`\[\[INTERNAL:\s*([^\]]+)\]\]`)

// Site describes where articles are published.
type Site struct {
	Name   string
	URL    string
	Author string
}

// SEO computes publish metadata for a site.
type SEO struct {
	site Site
}

// NewSEO creates the optimizer. The site URL is used without a trailing slash.
func NewSEO(site Site) *SEO {
	site.URL = strings.TrimRight(site.URL, "/")
	return &SEO{site: site}
}

// Optimize builds the metadata for an article whose slug and image path are already known.
func (s *SEO) Optimize(a model.Article, slug, imagePath string, now time.Time) model.PublishMeta {
	description := a.MetaDescription
	if description == "" {
		description = a.Subtitle
	}
	canonical := s.site.URL + "/posts/" + slug
	return model.PublishMeta{
		Slug:            slug,
		MetaTitle:       s.MetaTitle(a.Title),
		MetaDescription: s.MetaDescription(description, a.Title),
		Canonical:       canonical,
		JSONLD:          s.jsonLD(a, canonical, imagePath, now),
		InternalLinks:   InternalLinks(a.Body),
	}
}

// MetaTitle keeps titles within 30 to 60 characters: long titles are cut to 57 plus "...", short
// ones get the site name appended.
func (s *SEO) MetaTitle(title string) string {
	switch n := utf8.RuneCountInString(title); {
	case n > 60:
		return string([]rune(title)[:57]) + "..."
	case n < 30:
		return title + " | " + s.site.Name
	}
	return title
}

// MetaDescription aims for 120 to 155 characters.
func (s *SEO) MetaDescription(description, title string) string {
	switch n := utf8.RuneCountInString(description); {
	case n < 120:
		return strings.TrimSpace(description + " Read more about " + title + " on " + s.site.Name + ".")
	case n > 155:
		return string([]rune(description)[:152]) + "..."
	}
	return description
}

func (s *SEO) jsonLD(a model.Article, canonical, imagePath string, now time.Time) map[string]any {
	ts := now.Format(time.RFC3339)
	org := map[string]any{"@type": "Organization", "name": s.site.Name}
	return map[string]any{
		"@context":      "https://schema.org",
		"@type":         "Article",
		"headline":      a.Title,
		"description":   a.MetaDescription,
		"url":           canonical,
		"datePublished": ts,
		"dateModified":  ts,
		"author":        org,
		"publisher": map[string]any{
			"@type": "Organization",
			"name":  s.site.Name,
			"logo":  map[string]any{"@type": "ImageObject", "url": s.site.URL + "/logo.png"},
		},
		"image":            imagePath,
		"mainEntityOfPage": map[string]any{"@type": "WebPage", "@id": canonical},
	}
}

// InternalLinks finds [[INTERNAL: keyword]] placeholders in body, in order of appearance.
func InternalLinks(body string) []model.InternalLink {
	matches := internalLinkRe.FindAllStringSubmatch(body, -1)
	links := make([]model.InternalLink, 0, len(matches))
	for _, m := range matches {
		links = append(links, model.InternalLink{
			Keyword:     strings.TrimSpace(m[1]),
			Placeholder: m[0],
		})
	}
	return links
}

// ResolveInternalLinks replaces each placeholder with its plain keyword.
func ResolveInternalLinks(body string, links []model.InternalLink) string {
	for _, l := range links {
		body = strings.ReplaceAll(body, l.Placeholder, l.Keyword)
	}
	return body
}

// ReadingTime estimates minutes at 200 words per minute, never less than one.
func ReadingTime(words int) string {
	return strconv.Itoa(max(1, words/200)) + " min read"
}
