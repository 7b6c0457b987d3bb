package runner

import (
	"sync"

	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/model"
)

// StatsSink folds the event stream of one run into RunStats.
type StatsSink struct {
	mu    sync.Mutex
	stats *model.RunStats
}

// NewStatsSink observes events into stats.
func NewStatsSink(stats *model.RunStats) *StatsSink {
	return &StatsSink{stats: stats}
}

// Report implements events.Reporter.
func (s *StatsSink) Report(e events.Event) { s.Observe(e) }

// Observe applies one event. Events of other runs are ignored.
func (s *StatsSink) Observe(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.RunID != "" && e.RunID != s.stats.RunID {
		return
	}
	switch e.Kind {
	case events.TopicsDiscovered:
		s.stats.TopicsFound = e.Count
	case events.ArticleGenerated:
		s.stats.ArticlesGenerated++
	case events.TopicCompleted:
		if !s.stats.Simulated {
			s.stats.ArticlesPublished++
		}
	case events.TopicFailed:
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		s.stats.AddError(e.Topic, msg, e.Time)
	case events.RunCompleted:
		s.stats.Complete(e.Time)
	}
}

// Snapshot returns a copy of the current stats.
func (s *StatsSink) Snapshot() model.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.stats
	cp.Errors = append([]model.TopicError{}, s.stats.Errors...)
	return cp
}
