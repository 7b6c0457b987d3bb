// Package store keeps the publish ledger: an append-only log of published articles plus one
// summary row per pipeline run, in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/yangwenmai/autoblog/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ RecordWriter = (*Store)(nil)
	_ RecordReader = (*Store)(nil)
	_ RunRecorder  = (*Store)(nil)
)

// Fixed-width UTC layout so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

var recordColumns = []string{"id", "slug", "title", "path", "published_at", "source_method", "word_count"}

var runColumns = []string{
	"run_id", "started_at", "completed_at", "simulated", "topics_found",
	"articles_generated", "articles_published", "error_count", "report_path",
}

// Store provides data access to the SQLite ledger.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: publish records
		s.migrateV2, // v1 → v2: run summaries
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS publish_records (
		id            TEXT PRIMARY KEY,
		slug          TEXT NOT NULL,
		title         TEXT NOT NULL,
		path          TEXT NOT NULL,
		published_at  TEXT NOT NULL,
		source_method TEXT NOT NULL,
		word_count    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_publish_records_time ON publish_records(published_at DESC);
	`)
	return err
}

func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		run_id             TEXT PRIMARY KEY,
		started_at         TEXT NOT NULL,
		completed_at       TEXT,
		simulated          INTEGER NOT NULL,
		topics_found       INTEGER NOT NULL,
		articles_generated INTEGER NOT NULL,
		articles_published INTEGER NOT NULL,
		error_count        INTEGER NOT NULL,
		report_path        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`)
	return err
}

// ---------------------------------------------------------------------------
// Publish records
// ---------------------------------------------------------------------------

// Record appends a publish record. Records are never updated.
func (s *Store) Record(ctx context.Context, r model.PublishRecord) error {
	query, args, err := sq.Insert("publish_records").
		Columns(recordColumns...).
		Values(r.ID, r.Slug, r.Title, r.Path, r.Timestamp.UTC().Format(timeLayout), r.SourceMethod, r.WordCount).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.PublishRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := sq.Select(recordColumns...).
		From("publish_records").
		OrderBy("published_at DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.PublishRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// RecentSlugs returns the slugs published at or after since.
func (s *Store) RecentSlugs(ctx context.Context, since time.Time) ([]string, error) {
	query, args, err := sq.Select("DISTINCT slug").
		From("publish_records").
		Where(sq.GtOrEq{"published_at": since.UTC().Format(timeLayout)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// CountRecords returns the number of publish records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM publish_records`).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// RecordRun stores the summary of a finished run. Re-recording a run replaces its row.
func (s *Store) RecordRun(ctx context.Context, stats model.RunStats, reportPath string) error {
	var completed any
	if stats.CompletedAt != nil {
		completed = stats.CompletedAt.UTC().Format(timeLayout)
	}
	query, args, err := sq.Insert("runs").
		Options("OR REPLACE").
		Columns(runColumns...).
		Values(stats.RunID, stats.StartedAt.UTC().Format(timeLayout), completed, stats.Simulated,
			stats.TopicsFound, stats.ArticlesGenerated, stats.ArticlesPublished, len(stats.Errors), reportPath).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when none was recorded.
func (s *Store) LatestRun(ctx context.Context) (*RunSummary, error) {
	query, args, err := sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		run       RunSummary
		started   string
		completed sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&run.RunID, &started, &completed, &run.Simulated,
		&run.TopicsFound, &run.ArticlesGenerated, &run.ArticlesPublished, &run.ErrorCount, &run.ReportPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*model.PublishRecord, error) {
	var (
		r  model.PublishRecord
		ts string
	)
	if err := row.Scan(&r.ID, &r.Slug, &r.Title, &r.Path, &ts, &r.SourceMethod, &r.WordCount); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parse published_at: %w", err)
	}
	r.Timestamp = t
	return &r, nil
}
