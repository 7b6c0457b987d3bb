package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/autoblog/internal/draft"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/model"
)

type fakeDiscoverer struct {
	topics []model.Topic
	target int
}

func (f *fakeDiscoverer) Discover(_ context.Context, target int) ([]model.Topic, error) {
	f.target = target
	return f.topics, nil
}

type fakeRetriever struct {
	empty  map[string]bool
	panics map[string]bool
	calls  []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, topic model.Topic) (model.Sources, error) {
	f.calls = append(f.calls, topic.Title)
	if f.panics[topic.Title] {
		panic("boom")
	}
	if f.empty[topic.Title] {
		return model.Sources{Method: "none"}, nil
	}
	return model.Sources{
		Snippets: []model.SourceSnippet{{URL: "https://example.com", Text: "fact about " + topic.Title}},
		Method:   "firecrawl",
	}, nil
}

type fakeWriter struct{}

func (fakeWriter) Write(_ context.Context, topic string, _ []model.SourceSnippet) draft.Result {
	return draft.Result{
		Article:   model.Article{Title: topic, Body: "## Section\n\nBody for " + topic, Tags: []string{"tech"}},
		Generator: "claude",
		Refiner:   "cleanup",
	}
}

type fakeFinalizer struct {
	fail      map[string]bool
	published []string
	previewed []string
	after     func()
}

func (f *fakeFinalizer) Finalize(_ context.Context, a model.Article, method string) (model.PublishRecord, error) {
	if f.fail[a.Title] {
		return model.PublishRecord{}, errors.New("publisher exploded")
	}
	f.published = append(f.published, a.Title)
	if f.after != nil {
		f.after()
	}
	return model.PublishRecord{Slug: slugOf(a.Title), SourceMethod: method}, nil
}

func (f *fakeFinalizer) Preview(a model.Article) model.PublishMeta {
	f.previewed = append(f.previewed, a.Title)
	return model.PublishMeta{Slug: slugOf(a.Title)}
}

func slugOf(title string) string { return strings.ReplaceAll(strings.ToLower(title), " ", "-") }

type recordingDelays struct {
	mu    sync.Mutex
	kinds []DelayKind
}

func (r *recordingDelays) NextDelay(k DelayKind) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, k)
	return 0
}

type fakeRuns struct {
	stats []model.RunStats
	paths []string
}

func (f *fakeRuns) RecordRun(_ context.Context, stats model.RunStats, path string) error {
	f.stats = append(f.stats, stats)
	f.paths = append(f.paths, path)
	return nil
}

func topics(n int) []model.Topic {
	out := make([]model.Topic, n)
	for i := range out {
		out[i] = model.Topic{Title: fmt.Sprintf("Topic %d", i+1), Source: model.SourceRSSFeed}
	}
	return out
}

var fixedNow = time.Date(2026, 4, 2, 9, 15, 30, 0, time.UTC)

type harness struct {
	discover *fakeDiscoverer
	retrieve *fakeRetriever
	finalize *fakeFinalizer
	delays   *recordingDelays
	runs     *fakeRuns
	events   []events.Event
	dir      string
	sched    *BatchScheduler
}

func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	h := &harness{
		discover: &fakeDiscoverer{topics: topics(n)},
		retrieve: &fakeRetriever{empty: map[string]bool{}, panics: map[string]bool{}},
		finalize: &fakeFinalizer{fail: map[string]bool{}},
		delays:   &recordingDelays{},
		runs:     &fakeRuns{},
		dir:      t.TempDir(),
	}
	rep := events.ReporterFunc(func(e events.Event) { h.events = append(h.events, e) })
	h.sched = New(h.discover, h.retrieve, fakeWriter{}, h.finalize, nil, rep,
		WithDelays(h.delays),
		WithReportDir(h.dir),
		WithRunRecorder(h.runs),
		WithClock(func() time.Time { return fixedNow }),
	)
	return h
}

func TestRun_StopsAtLimit(t *testing.T) {
	h := newHarness(t, 10)
	h.finalize.fail["Topic 3"] = true

	stats, err := h.sched.Run(context.Background(), Options{Limit: 3, BatchSize: 5})
	require.NoError(t, err)

	assert.Equal(t, 9, h.discover.target, "limit times overfetch")
	assert.Equal(t, []string{"Topic 1", "Topic 2", "Topic 3", "Topic 4"}, h.retrieve.calls)
	assert.Equal(t, []string{"Topic 1", "Topic 2", "Topic 4"}, h.finalize.published)
	assert.Equal(t, 10, stats.TopicsFound)
	assert.Equal(t, 4, stats.ArticlesGenerated)
	assert.Equal(t, 3, stats.ArticlesPublished)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "Topic 3", stats.Errors[0].Topic)
	assert.Contains(t, stats.Errors[0].Error, "publisher exploded")
	require.NotNil(t, stats.CompletedAt)
	assert.False(t, stats.Simulated)

	assert.Equal(t, []DelayKind{ItemDelay, ItemDelay}, h.delays.kinds)
}

func TestRun_BatchDelays(t *testing.T) {
	h := newHarness(t, 6)

	stats, err := h.sched.Run(context.Background(), Options{Limit: 4, BatchSize: 2, Overfetch: 1})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.ArticlesPublished)
	assert.Equal(t, []DelayKind{ItemDelay, BatchDelay, ItemDelay}, h.delays.kinds)
}

func TestRun_ExhaustsTopics(t *testing.T) {
	h := newHarness(t, 4)
	h.retrieve.empty["Topic 2"] = true

	stats, err := h.sched.Run(context.Background(), Options{Limit: 5, BatchSize: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.ArticlesPublished)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "Topic 2", stats.Errors[0].Topic)
	assert.Contains(t, stats.Errors[0].Error, ErrNoSources.Error())
	assert.Equal(t, 3, stats.ArticlesGenerated)
}

func TestRun_Simulate(t *testing.T) {
	h := newHarness(t, 5)

	stats, err := h.sched.Run(context.Background(), Options{Limit: 2, BatchSize: 5, Simulate: true})
	require.NoError(t, err)

	assert.True(t, stats.Simulated)
	assert.Equal(t, 0, stats.ArticlesPublished)
	assert.Equal(t, 2, stats.ArticlesGenerated)
	assert.Empty(t, h.finalize.published)
	assert.Equal(t, []string{"Topic 1", "Topic 2"}, h.finalize.previewed)
	assert.Empty(t, h.delays.kinds)
}

func TestRun_PanicIsRecorded(t *testing.T) {
	h := newHarness(t, 3)
	h.retrieve.panics["Topic 1"] = true

	stats, err := h.sched.Run(context.Background(), Options{Limit: 2, BatchSize: 5})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ArticlesPublished)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0].Error, "panic: boom")

	var failed *events.Event
	for i := range h.events {
		if h.events[i].Kind == events.TopicFailed {
			failed = &h.events[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, StageRetrieve, failed.Stage)
}

func TestRun_NoTopicsStillReports(t *testing.T) {
	h := newHarness(t, 0)

	stats, err := h.sched.Run(context.Background(), Options{Limit: 3})
	require.ErrorIs(t, err, ErrNoTopics)
	assert.Equal(t, 0, stats.TopicsFound)

	path := filepath.Join(h.dir, "pipeline_20260402_091530.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report model.RunStats
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, stats.RunID, report.RunID)
	assert.NotNil(t, report.CompletedAt)

	require.Len(t, h.runs.paths, 1)
	assert.Equal(t, path, h.runs.paths[0])
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	h.finalize.after = cancel

	stats, err := h.sched.Run(ctx, Options{Limit: 5, BatchSize: 5})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.ArticlesPublished)
	assert.Len(t, h.runs.stats, 1)
}

func TestRun_EventSequence(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.sched.Run(context.Background(), Options{Limit: 1, BatchSize: 1})
	require.NoError(t, err)

	var kinds []events.Kind
	var phases []string
	for _, e := range h.events {
		kinds = append(kinds, e.Kind)
		if e.Kind == events.PhaseChanged {
			phases = append(phases, e.Phase)
		}
		assert.NotEmpty(t, e.RunID)
	}
	assert.Equal(t, events.RunStarted, kinds[0])
	assert.Equal(t, events.RunCompleted, kinds[len(kinds)-1])
	assert.Equal(t, []string{"idle", "discovering", "processing", "completed"}, phases)
	assert.Contains(t, kinds, events.TopicCompleted)
}

func TestStageError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &StageError{Stage: StageDraft, Err: ErrNoSources})
	assert.ErrorIs(t, err, ErrNoSources)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "draft", se.Stage)
	assert.Equal(t, "wrapped: draft: no sources found", err.Error())
}
