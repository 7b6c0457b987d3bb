package runner

import "errors"

var (
	// ErrNoTopics is returned when discovery found nothing to write about.
	ErrNoTopics = errors.New("no topics discovered")
	// ErrNoSources fails a topic whose retrieval came back empty.
	ErrNoSources = errors.New("no sources found")
)

// Stage names used in StageError.
const (
	StageRetrieve = "retrieve"
	StageDraft    = "draft"
	StageFinalize = "finalize"
)

// StageError wraps an error with the stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
