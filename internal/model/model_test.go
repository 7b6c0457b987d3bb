package model

import (
	"testing"
	"time"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" AI ", "ai", "", "Gadgets", "space", "Gadgets"})
	want := []string{"AI", "Gadgets", "space"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestArticleCategoryAndWordCount(t *testing.T) {
	a := Article{Body: "## Intro\n\none two  three"}
	if a.Category() != "technology" {
		t.Errorf("Category = %q, want technology", a.Category())
	}
	if a.WordCount() != 5 {
		t.Errorf("WordCount = %d, want 5", a.WordCount())
	}
	a.Tags = []string{"space"}
	if a.Category() != "space" {
		t.Errorf("Category = %q, want space", a.Category())
	}
}

func TestSourcesEmpty(t *testing.T) {
	if !(Sources{}).Empty() {
		t.Error("zero Sources should be empty")
	}
	if !(Sources{Snippets: []SourceSnippet{{URL: "https://x"}}}).Empty() {
		t.Error("snippet without text should count as empty")
	}
	if (Sources{Snippets: []SourceSnippet{{Text: "fact"}}}).Empty() {
		t.Error("snippet with text should not be empty")
	}
}

func TestRunStats(t *testing.T) {
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	s := NewRunStats("run-1", start)
	if s.Errors == nil {
		t.Fatal("Errors should be initialised so reports serialise []")
	}
	s.AddError("topic 3", "boom", start.Add(time.Minute))
	s.Complete(start.Add(time.Hour))
	if len(s.Errors) != 1 || s.Errors[0].Topic != "topic 3" {
		t.Errorf("Errors = %+v", s.Errors)
	}
	if s.CompletedAt == nil || !s.CompletedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("CompletedAt = %v", s.CompletedAt)
	}
}
