package model

import "time"

// TopicError records one failed topic in a run.
type TopicError struct {
	Topic string    `json:"topic"`
	Error string    `json:"error"`
	Time  time.Time `json:"time"`
}

// RunStats accumulates the counters of a single run. It is owned by the runner and never shared
// across runs.
type RunStats struct {
	RunID             string       `json:"run_id"`
	StartedAt         time.Time    `json:"started_at"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	Simulated         bool         `json:"simulated"`
	TopicsFound       int          `json:"topics_found"`
	ArticlesGenerated int          `json:"articles_generated"`
	ArticlesPublished int          `json:"articles_published"`
	Errors            []TopicError `json:"errors"`
}

// NewRunStats creates stats for a run starting at the given time.
func NewRunStats(runID string, startedAt time.Time) *RunStats {
	return &RunStats{
		RunID:     runID,
		StartedAt: startedAt,
		Errors:    []TopicError{},
	}
}

// AddError appends a topic failure.
func (s *RunStats) AddError(topic, msg string, at time.Time) {
	s.Errors = append(s.Errors, TopicError{Topic: topic, Error: msg, Time: at})
}

// Complete stamps the completion time.
func (s *RunStats) Complete(at time.Time) {
	s.CompletedAt = &at
}
