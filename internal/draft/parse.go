package draft

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yangwenmai/autoblog/internal/model"
)

// Field limits applied to every parsed article.
const (
	MaxTitleRunes = 70
	MaxMetaRunes  = 155
	MinTags       = 3
	MaxTags       = 5
)

const defaultSubtitle = "Exploring the latest developments"

// DefaultTags fill articles that come back with fewer than MinTags tags.
var DefaultTags = []string{"technology", "innovation", "news"}

var (
	// ErrUnparseable is returned when model output has neither a JSON article nor a markdown body.
	ErrUnparseable = errors.New("unparseable article")

	sectionRe = regexp.MustCompile(`(?m)^##\s`)
	titleRe   = regexp.MustCompile(`(?mi)^\s*\**title\**\s*:\s*\**(.+?)\**\s*$`)
	headingRe = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
	fenceRe   = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

type rawArticle struct {
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Body            string   `json:"body_mdx"`
	BodyAlt         string   `json:"body"`
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
}

// ParseArticle turns raw model output into an Article. It accepts a JSON object, optionally inside
// code fences or surrounded by prose, and otherwise falls back to markdown with at least one
// "## " section and a "Title:" line or "# " heading.
func ParseArticle(raw string) (model.Article, error) {
	if a, ok := parseJSON(raw); ok {
		return a, nil
	}
	return parseMarkdown(raw)
}

func parseJSON(raw string) (model.Article, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return model.Article{}, false
	}

	var r rawArticle
	if err := json.Unmarshal([]byte(raw[start:end+1]), &r); err != nil {
		return model.Article{}, false
	}
	if r.Body == "" {
		r.Body = r.BodyAlt
	}
	a := model.Article{
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		Body:            r.Body,
		MetaDescription: r.MetaDescription,
		Tags:            r.Tags,
	}
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Body) == "" {
		return model.Article{}, false
	}
	return Normalize(a), true
}

func parseMarkdown(raw string) (model.Article, error) {
	text := StripFences(raw)
	loc := sectionRe.FindStringIndex(text)
	if loc == nil {
		return model.Article{}, ErrUnparseable
	}

	var title string
	if m := titleRe.FindStringSubmatch(text[:loc[0]]); m != nil {
		title = m[1]
	} else if m := headingRe.FindStringSubmatch(text[:loc[0]]); m != nil {
		title = m[1]
	}
	if strings.TrimSpace(title) == "" {
		return model.Article{}, ErrUnparseable
	}

	return Normalize(model.Article{
		Title: title,
		Body:  text[loc[0]:],
	}), nil
}

// StripFences removes markdown code fence lines.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// Normalize enforces the field limits: title and meta description are cut to their rune budgets,
// a missing subtitle or meta description is filled, and tags become an ordered set of 3 to 5.
func Normalize(a model.Article) model.Article {
	a.Title = cutRunes(strings.TrimSpace(a.Title), MaxTitleRunes)
	a.Subtitle = strings.TrimSpace(a.Subtitle)
	if a.Subtitle == "" {
		a.Subtitle = defaultSubtitle
	}
	a.Body = strings.TrimSpace(a.Body)

	meta := strings.TrimSpace(a.MetaDescription)
	if meta == "" {
		meta = a.Title
	}
	a.MetaDescription = cutRunes(meta, MaxMetaRunes)

	tags := model.NormalizeTags(a.Tags)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	for _, d := range DefaultTags {
		if len(tags) >= MinTags {
			break
		}
		if !containsFold(tags, d) {
			tags = append(tags, d)
		}
	}
	a.Tags = tags
	return a
}

func cutRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
