package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/yangwenmai/autoblog/internal/fsutil"
	"github.com/yangwenmai/autoblog/internal/model"
)

// MaxIndexEntries bounds the homepage index.
const MaxIndexEntries = 100

// Index is the JSON list of recent posts, newest first.
type Index struct {
	path string
	max  int
	mu   sync.Mutex
}

// NewIndex manages the index file at path.
func NewIndex(path string) *Index {
	return &Index{path: path, max: MaxIndexEntries}
}

// Path is the index file location.
func (x *Index) Path() string { return x.path }

// Load reads the index. A missing file is an empty index.
func (x *Index) Load() ([]model.IndexEntry, error) {
	data, err := os.ReadFile(x.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.IndexEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var entries []model.IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return entries, nil
}

// Add puts e first, drops any older entry with the same slug, caps the list and rewrites the file.
func (x *Index) Add(e model.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	entries, err := x.Load()
	if err != nil {
		return err
	}
	next := make([]model.IndexEntry, 0, len(entries)+1)
	next = append(next, e)
	for _, old := range entries {
		if old.Slug != e.Slug {
			next = append(next, old)
		}
	}
	if len(next) > x.max {
		next = next[:x.max]
	}
	return fsutil.WriteJSON(x.path, next)
}
