package discover

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// History supplies identifiers of recently published posts.
type History interface {
	RecentSlugs(ctx context.Context, since time.Time) ([]string, error)
}

// PostsDirHistory lists post files in Dir modified after since, by file stem.
type PostsDirHistory struct {
	Dir string
	Ext string // defaults to ".mdx"
}

func (h PostsDirHistory) RecentSlugs(_ context.Context, since time.Time) ([]string, error) {
	ext := h.Ext
	if ext == "" {
		ext = ".mdx"
	}
	entries, err := os.ReadDir(h.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read posts dir: %w", err)
	}

	var slugs []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(since) {
			slugs = append(slugs, strings.TrimSuffix(e.Name(), ext))
		}
	}
	return slugs, nil
}

// UnionHistory merges several histories. Nil members are skipped; the first error aborts.
type UnionHistory []History

func (u UnionHistory) RecentSlugs(ctx context.Context, since time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, h := range u {
		if h == nil {
			continue
		}
		slugs, err := h.RecentSlugs(ctx, since)
		if err != nil {
			return nil, err
		}
		for _, s := range slugs {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}
