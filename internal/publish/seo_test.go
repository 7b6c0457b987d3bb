package publish

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/autoblog/internal/model"
)

func testSEO() *SEO {
	return NewSEO(Site{Name: "Tech Blog", URL: "https://example.com/", Author: "Editorial Team"})
}

func TestMetaTitle(t *testing.T) {
	s := testSEO()

	assert.Equal(t, "Short | Tech Blog", s.MetaTitle("Short"))

	mid := "A Title That Is Comfortably Within Range"
	assert.Equal(t, mid, s.MetaTitle(mid))

	long := strings.Repeat("word ", 20)
	got := s.MetaTitle(long)
	assert.Equal(t, 60, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestMetaDescription(t *testing.T) {
	s := testSEO()

	got := s.MetaDescription("Short description.", "Rust")
	assert.Equal(t, "Short description. Read more about Rust on Tech Blog.", got)

	ok := strings.Repeat("a", 130)
	assert.Equal(t, ok, s.MetaDescription(ok, "x"))

	long := strings.Repeat("b", 200)
	got = s.MetaDescription(long, "x")
	assert.Equal(t, 155, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestOptimize(t *testing.T) {
	s := testSEO()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := model.Article{
		Title:           "Edge Computing Goes Mainstream in Retail",
		Subtitle:        "Stores move inference closer to shoppers",
		MetaDescription: "Retailers are deploying edge computing.",
		Body:            "Intro about [[INTERNAL: machine learning]] and [[INTERNAL:cloud costs]].",
	}

	meta := s.Optimize(a, "edge-computing", "/images/edge-computing.jpg", now)

	assert.Equal(t, "edge-computing", meta.Slug)
	assert.Equal(t, "https://example.com/posts/edge-computing", meta.Canonical)
	assert.Equal(t, a.Title, meta.MetaTitle)
	require.Len(t, meta.InternalLinks, 2)
	assert.Equal(t, "machine learning", meta.InternalLinks[0].Keyword)
	assert.Equal(t, "[[INTERNAL:cloud costs]]", meta.InternalLinks[1].Placeholder)

	assert.Equal(t, "Article", meta.JSONLD["@type"])
	assert.Equal(t, a.Title, meta.JSONLD["headline"])
	assert.Equal(t, "2026-03-01T09:00:00Z", meta.JSONLD["datePublished"])
	assert.Equal(t, "/images/edge-computing.jpg", meta.JSONLD["image"])
}

func TestOptimize_FallsBackToSubtitle(t *testing.T) {
	a := model.Article{Title: "Title", Subtitle: "Only a subtitle"}
	meta := testSEO().Optimize(a, "title", PlaceholderImage, time.Now())
	assert.True(t, strings.HasPrefix(meta.MetaDescription, "Only a subtitle"))
}

func TestResolveInternalLinks(t *testing.T) {
	body := "See [[INTERNAL: quantum computing]] and again [[INTERNAL: quantum computing]]."
	got := ResolveInternalLinks(body, InternalLinks(body))
	assert.Equal(t, "See quantum computing and again quantum computing.", got)
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, "1 min read", ReadingTime(0))
	assert.Equal(t, "1 min read", ReadingTime(150))
	assert.Equal(t, "3 min read", ReadingTime(650))
}
