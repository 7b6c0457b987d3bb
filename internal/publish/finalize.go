// Package publish turns a drafted article into a published post: slug, SEO metadata, image,
// the post file itself, the homepage index and the publish ledger.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Recorder appends publish records to a ledger.
type Recorder interface {
	Record(ctx context.Context, r model.PublishRecord) error
}

// ImageSource finds an image for an article. It always returns something usable.
type ImageSource interface {
	Find(ctx context.Context, title, slug string, tags []string) model.ImageResult
}

// Finalizer runs the Finalize + Publish stage.
type Finalizer struct {
	seo       *SEO
	images    ImageSource
	publisher Publisher
	index     *Index
	recorder  Recorder
	log       logger.Logger
	now       func() time.Time
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithIndex maintains the homepage index after each publish.
func WithIndex(x *Index) Option { return func(f *Finalizer) { f.index = x } }

// WithRecorder appends a ledger record after each publish.
func WithRecorder(r Recorder) Option { return func(f *Finalizer) { f.recorder = r } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(f *Finalizer) { f.now = now } }

// NewFinalizer creates the stage. images may be nil, in which case every post gets the placeholder.
func NewFinalizer(seo *SEO, images ImageSource, publisher Publisher, log logger.Logger, opts ...Option) *Finalizer {
	if log == nil {
		log = logger.NewNop()
	}
	f := &Finalizer{
		seo:       seo,
		images:    images,
		publisher: publisher,
		log:       log.With(logger.Component("publish")),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Preview computes the slug and metadata without searching images or writing anything.
func (f *Finalizer) Preview(a model.Article) model.PublishMeta {
	slug := Slug(a.Title)
	return f.seo.Optimize(a, slug, PlaceholderImage, f.now())
}

// Finalize publishes a, then updates the index and ledger. Index and ledger failures are logged
// and do not fail the publish.
func (f *Finalizer) Finalize(ctx context.Context, a model.Article, sourceMethod string) (model.PublishRecord, error) {
	if a.Body == "" {
		return model.PublishRecord{}, errors.New("finalize: empty body")
	}
	if f.publisher == nil {
		return model.PublishRecord{}, errors.New("finalize: no publisher configured")
	}

	slug := Slug(a.Title)
	img := Placeholder(a.Title)
	if f.images != nil {
		img = f.images.Find(ctx, a.Title, slug, a.Tags)
	}
	now := f.now()
	meta := f.seo.Optimize(a, slug, img.Path, now)

	path, err := f.publisher.Publish(ctx, a, meta, img)
	if err != nil {
		return model.PublishRecord{}, fmt.Errorf("publish %s: %w", f.publisher.Name(), err)
	}

	rec := model.PublishRecord{
		ID:           uuid.NewString(),
		Slug:         slug,
		Title:        a.Title,
		Path:         path,
		Timestamp:    now.UTC(),
		SourceMethod: sourceMethod,
		WordCount:    a.WordCount(),
	}
	f.log.Info("article published",
		logger.String("slug", slug),
		logger.String("path", path),
		logger.Int("words", rec.WordCount),
	)

	if f.index != nil {
		entry := model.IndexEntry{
			Slug:     slug,
			Title:    a.Title,
			Subtitle: a.Subtitle,
			Date:     now.Format("2006-01-02"),
			Category: a.Category(),
			Image:    img.Path,
		}
		if err := f.index.Add(entry); err != nil {
			f.log.Warn("update index failed", logger.String("slug", slug), logger.Error(err))
		}
	}
	if f.recorder != nil {
		if err := f.recorder.Record(ctx, rec); err != nil {
			f.log.Warn("record publish failed", logger.String("slug", slug), logger.Error(err))
		}
	}
	return rec, nil
}
