package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yangwenmai/autoblog/internal/fsutil"
	"github.com/yangwenmai/autoblog/internal/model"
)

// ErrNotImplemented is returned by publishers whose remote API is not wired yet.
var ErrNotImplemented = errors.New("publisher not implemented")

// Publisher persists a finalized article and returns where it ended up.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a model.Article, meta model.PublishMeta, img model.ImageResult) (string, error)
}

// FrontMatter is the YAML header of a published post. Field order is the output order.
type FrontMatter struct {
	Title            string   `yaml:"title"`
	Subtitle         string   `yaml:"subtitle"`
	Description      string   `yaml:"description"`
	Date             string   `yaml:"date"`
	Image            string   `yaml:"image"`
	ImageAlt         string   `yaml:"imageAlt"`
	ImageAttribution string   `yaml:"imageAttribution"`
	Tags             []string `yaml:"tags"`
	Category         string   `yaml:"category"`
	Author           string   `yaml:"author"`
	ReadingTime      string   `yaml:"readingTime"`
	Slug             string   `yaml:"slug"`
}

// MDXPublisher writes <dir>/<slug>.mdx files with YAML front matter.
type MDXPublisher struct {
	dir    string
	author string
	now    func() time.Time
}

// NewMDXPublisher creates a publisher writing into dir.
func NewMDXPublisher(dir, author string) *MDXPublisher {
	return &MDXPublisher{dir: dir, author: author, now: time.Now}
}

// WithClock returns a copy that stamps posts with now().
func (p *MDXPublisher) WithClock(now func() time.Time) *MDXPublisher {
	cp := *p
	cp.now = now
	return &cp
}

// Dir is the content directory.
func (p *MDXPublisher) Dir() string { return p.dir }

func (p *MDXPublisher) Name() string { return "mdx" }

func (p *MDXPublisher) Publish(ctx context.Context, a model.Article, meta model.PublishMeta, img model.ImageResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fm := FrontMatter{
		Title:            a.Title,
		Subtitle:         a.Subtitle,
		Description:      meta.MetaDescription,
		Date:             p.now().UTC().Format(time.RFC3339),
		Image:            img.Path,
		ImageAlt:         img.Alt,
		ImageAttribution: img.Attribution,
		Tags:             a.Tags,
		Category:         a.Category(),
		Author:           p.author,
		ReadingTime:      ReadingTime(a.WordCount()),
		Slug:             meta.Slug,
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	doc, err := RenderMDX(fm, ResolveInternalLinks(a.Body, meta.InternalLinks))
	if err != nil {
		return "", err
	}
	path := filepath.Join(p.dir, meta.Slug+".mdx")
	if err := fsutil.WriteFile(path, doc); err != nil {
		return "", fmt.Errorf("write post: %w", err)
	}
	return path, nil
}

// RenderMDX joins front matter and body into a post document.
func RenderMDX(fm FrontMatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// ParseFrontMatter splits a post document back into front matter and body.
func ParseFrontMatter(doc []byte) (FrontMatter, string, error) {
	var fm FrontMatter
	s := string(doc)
	if !strings.HasPrefix(s, "---\n") {
		return fm, "", errors.New("missing front matter")
	}
	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return fm, "", errors.New("unterminated front matter")
	}
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return fm, "", fmt.Errorf("decode front matter: %w", err)
	}
	return fm, strings.TrimSpace(rest[end+len("\n---\n"):]), nil
}

// WordPressPublisher targets the WordPress REST API.
type WordPressPublisher struct {
	APIURL string
	APIKey string
}

func (p *WordPressPublisher) Name() string { return "wordpress" }

func (p *WordPressPublisher) Publish(context.Context, model.Article, model.PublishMeta, model.ImageResult) (string, error) {
	return "", fmt.Errorf("wordpress: %w", ErrNotImplemented)
}

// HeadlessCMSPublisher targets a generic headless CMS endpoint.
type HeadlessCMSPublisher struct {
	APIURL string
	APIKey string
}

func (p *HeadlessCMSPublisher) Name() string { return "cms" }

func (p *HeadlessCMSPublisher) Publish(context.Context, model.Article, model.PublishMeta, model.ImageResult) (string, error) {
	return "", fmt.Errorf("cms: %w", ErrNotImplemented)
}
