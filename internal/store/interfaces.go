package store

import (
	"context"
	"time"

	"github.com/yangwenmai/autoblog/internal/model"
)

// RunSummary is the ledger row written at the end of every run.
type RunSummary struct {
	RunID             string     `json:"run_id"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Simulated         bool       `json:"simulated"`
	TopicsFound       int        `json:"topics_found"`
	ArticlesGenerated int        `json:"articles_generated"`
	ArticlesPublished int        `json:"articles_published"`
	ErrorCount        int        `json:"error_count"`
	ReportPath        string     `json:"report_path"`
}

// RecordWriter appends publish records.
type RecordWriter interface {
	Record(ctx context.Context, r model.PublishRecord) error
}

// RecordReader reads publish records back.
type RecordReader interface {
	Recent(ctx context.Context, limit int) ([]model.PublishRecord, error)
	RecentSlugs(ctx context.Context, since time.Time) ([]string, error)
	CountRecords(ctx context.Context) (int, error)
}

// RunRecorder stores and reads run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, stats model.RunStats, reportPath string) error
	LatestRun(ctx context.Context) (*RunSummary, error)
}

// Ledger combines all ledger operations for the API layer.
type Ledger interface {
	RecordWriter
	RecordReader
	RunRecorder
}
