// Package events defines the structured event stream emitted while the pipeline runs. Logging,
// metrics and run statistics are all sinks of the same stream.
package events

import (
	"time"

	"github.com/yangwenmai/autoblog/internal/logger"
)

// Kind identifies an event type.
type Kind string

const (
	RunStarted       Kind = "run_started"
	PhaseChanged     Kind = "phase_changed"
	TopicsDiscovered Kind = "topics_discovered"
	TopicStarted     Kind = "topic_started"
	ProviderFailed   Kind = "provider_failed"
	ProviderUsed     Kind = "provider_used"
	FallbackUsed     Kind = "fallback_used"
	ArticleGenerated Kind = "article_generated"
	TopicCompleted   Kind = "topic_completed"
	TopicFailed      Kind = "topic_failed"
	RunCompleted     Kind = "run_completed"
)

// Event is a single pipeline occurrence. Only the fields relevant to the Kind are set.
type Event struct {
	Kind     Kind
	Time     time.Time
	RunID    string
	Phase    string
	Stage    string
	Provider string
	Topic    string
	Slug     string
	Count    int
	Err      error

	// Skipped marks an expected provider failure, such as missing credentials.
	Skipped bool
}

// Reporter receives events. Implementations must not block for long.
type Reporter interface {
	Report(e Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// Multi fans an event out to every reporter in order.
type Multi []Reporter

// Report forwards e to each non-nil reporter.
func (m Multi) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

// Nop discards events.
type Nop struct{}

// Report does nothing.
func (Nop) Report(Event) {}

// LogReporter writes each event as a structured log entry.
type LogReporter struct {
	log logger.Logger
}

// NewLogReporter creates a reporter logging through l.
func NewLogReporter(l logger.Logger) *LogReporter {
	return &LogReporter{log: l}
}

// Report logs the event; failures are logged at warn, skipped providers at debug and topic
// failures at error.
func (r *LogReporter) Report(e Event) {
	fields := []logger.Field{logger.String("event", string(e.Kind))}
	if e.RunID != "" {
		fields = append(fields, logger.String("run_id", e.RunID))
	}
	if e.Phase != "" {
		fields = append(fields, logger.String("phase", e.Phase))
	}
	if e.Stage != "" {
		fields = append(fields, logger.String("stage", e.Stage))
	}
	if e.Provider != "" {
		fields = append(fields, logger.String("provider", e.Provider))
	}
	if e.Topic != "" {
		fields = append(fields, logger.String("topic", e.Topic))
	}
	if e.Slug != "" {
		fields = append(fields, logger.String("slug", e.Slug))
	}
	if e.Count != 0 {
		fields = append(fields, logger.Int("count", e.Count))
	}
	if e.Err != nil {
		fields = append(fields, logger.Error(e.Err))
	}

	switch e.Kind {
	case TopicFailed:
		r.log.Error("pipeline event", fields...)
	case ProviderFailed:
		if e.Skipped {
			r.log.Debug("pipeline event", fields...)
		} else {
			r.log.Warn("pipeline event", fields...)
		}
	case FallbackUsed:
		r.log.Warn("pipeline event", fields...)
	case ProviderUsed:
		r.log.Debug("pipeline event", fields...)
	default:
		r.log.Info("pipeline event", fields...)
	}
}
