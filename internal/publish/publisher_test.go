package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/autoblog/internal/model"
)

func sampleArticle() model.Article {
	return model.Article{
		Title:           "Edge Computing Goes Mainstream in Retail",
		Subtitle:        "Stores move inference closer to shoppers",
		MetaDescription: "Retailers are deploying edge computing.",
		Body:            "## Why now\n\nLatency matters for [[INTERNAL: computer vision]] at checkout.",
		Tags:            []string{"edge", "retail", "ai"},
	}
}

func publishAt(t *testing.T, dir string, at time.Time) []byte {
	t.Helper()
	a := sampleArticle()
	meta := testSEO().Optimize(a, Slug(a.Title), "/images/x.jpg", at)
	img := model.ImageResult{Path: "/images/x.jpg", Alt: "shelves", Attribution: "Photo by Ada on Unsplash"}

	p := NewMDXPublisher(dir, "Editorial Team").WithClock(func() time.Time { return at })
	path, err := p.Publish(context.Background(), a, meta, img)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "edge-computing-goes-mainstream-in-retail.mdx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestMDXPublisher_FrontMatter(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	doc := publishAt(t, t.TempDir(), at)

	fm, body, err := ParseFrontMatter(doc)
	require.NoError(t, err)
	assert.Equal(t, "Edge Computing Goes Mainstream in Retail", fm.Title)
	assert.Equal(t, "2026-05-04T10:30:00Z", fm.Date)
	assert.Equal(t, []string{"edge", "retail", "ai"}, fm.Tags)
	assert.Equal(t, "edge", fm.Category)
	assert.Equal(t, "Editorial Team", fm.Author)
	assert.Equal(t, "1 min read", fm.ReadingTime)
	assert.Equal(t, "edge-computing-goes-mainstream-in-retail", fm.Slug)
	assert.Equal(t, "shelves", fm.ImageAlt)
	assert.Equal(t, "## Why now\n\nLatency matters for computer vision at checkout.", body)

	keys := []string{"title:", "subtitle:", "description:", "date:", "image:", "imageAlt:",
		"imageAttribution:", "tags:", "category:", "author:", "readingTime:", "slug:"}
	last := -1
	for _, k := range keys {
		i := strings.Index(string(doc), "\n"+k)
		require.Greater(t, i, last, "%s out of order", k)
		last = i
	}
}

func TestMDXPublisher_IdempotentExceptDate(t *testing.T) {
	first := publishAt(t, t.TempDir(), time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC))
	second := publishAt(t, t.TempDir(), time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))

	a := strings.Split(string(first), "\n")
	b := strings.Split(string(second), "\n")
	require.Equal(t, len(a), len(b))
	var diff []string
	for i := range a {
		if a[i] != b[i] {
			diff = append(diff, a[i])
		}
	}
	require.Len(t, diff, 1)
	assert.True(t, strings.HasPrefix(diff[0], "date:"))
}

func TestStubPublishers(t *testing.T) {
	for _, p := range []Publisher{&WordPressPublisher{}, &HeadlessCMSPublisher{}} {
		_, err := p.Publish(context.Background(), sampleArticle(), model.PublishMeta{}, model.ImageResult{})
		assert.True(t, errors.Is(err, ErrNotImplemented), p.Name())
	}
}

func TestParseFrontMatter_Errors(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("no header"))
	assert.Error(t, err)
	_, _, err = ParseFrontMatter([]byte("---\ntitle: x\n"))
	assert.Error(t, err)
}

func TestIndex_BoundedAndNewestFirst(t *testing.T) {
	idx := NewIndex(filepath.Join(t.TempDir(), "index.json"))

	for i := 0; i <= MaxIndexEntries; i++ {
		require.NoError(t, idx.Add(model.IndexEntry{Slug: fmt.Sprintf("post-%03d", i), Title: "T"}))
	}

	entries, err := idx.Load()
	require.NoError(t, err)
	require.Len(t, entries, MaxIndexEntries)
	assert.Equal(t, "post-100", entries[0].Slug)
	assert.Equal(t, "post-001", entries[len(entries)-1].Slug)
}

func TestIndex_ReplacesSameSlug(t *testing.T) {
	idx := NewIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, idx.Add(model.IndexEntry{Slug: "a", Title: "old"}))
	require.NoError(t, idx.Add(model.IndexEntry{Slug: "b", Title: "b"}))
	require.NoError(t, idx.Add(model.IndexEntry{Slug: "a", Title: "new"}))

	entries, err := idx.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.IndexEntry{Slug: "a", Title: "new"}, entries[0])
	assert.Equal(t, "b", entries[1].Slug)
}

func TestIndex_LoadMissing(t *testing.T) {
	entries, err := NewIndex(filepath.Join(t.TempDir(), "none.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
