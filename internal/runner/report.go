package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yangwenmai/autoblog/internal/fsutil"
	"github.com/yangwenmai/autoblog/internal/model"
)

const reportPrefix = "pipeline_"

// ReportName is the file name of the report for a run finishing at t.
func ReportName(t time.Time) string {
	return reportPrefix + t.Format("20060102_150405") + ".json"
}

// WriteReport serializes stats into dir and returns the file path.
func WriteReport(dir string, stats model.RunStats, at time.Time) (string, error) {
	path := filepath.Join(dir, ReportName(at))
	if err := fsutil.WriteJSON(path, stats); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// LatestReport returns the path of the newest report in dir, or "" when there is none.
func LatestReport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read reports dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), reportPrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
