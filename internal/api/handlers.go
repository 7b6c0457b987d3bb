package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yangwenmai/autoblog/internal/runner"
)

const maxRecordsLimit = 500

// ---------------------------------------------------------------------------
// GET /healthz
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "autoblog",
		"version": s.deps.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// ---------------------------------------------------------------------------
// GET /api/posts
// ---------------------------------------------------------------------------

func (s *Server) handleListPosts(c *gin.Context) {
	if s.deps.Index == nil {
		writeError(c, http.StatusNotFound, "index not configured", nil)
		return
	}
	entries, err := s.deps.Index.Load()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to read index", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ---------------------------------------------------------------------------
// GET /api/records?limit=
// ---------------------------------------------------------------------------

func (s *Server) handleListRecords(c *gin.Context) {
	if s.deps.Ledger == nil {
		writeError(c, http.StatusNotFound, "ledger not configured", nil)
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxRecordsLimit)
	}

	records, err := s.deps.Ledger.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to list records", err)
		return
	}
	total, err := s.deps.Ledger.CountRecords(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to count records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "records": records})
}

// ---------------------------------------------------------------------------
// GET /api/runs/latest
// ---------------------------------------------------------------------------

// handleLatestRun serves the newest report file verbatim, falling back to the ledger summary.
func (s *Server) handleLatestRun(c *gin.Context) {
	if s.deps.ReportsDir != "" {
		path, err := runner.LatestReport(s.deps.ReportsDir)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "failed to list reports", err)
			return
		}
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				writeError(c, http.StatusInternalServerError, "failed to read report", err)
				return
			}
			c.Data(http.StatusOK, "application/json", data)
			return
		}
	}

	if s.deps.Ledger != nil {
		run, err := s.deps.Ledger.LatestRun(c.Request.Context())
		if err != nil {
			writeError(c, http.StatusInternalServerError, "failed to read latest run", err)
			return
		}
		if run != nil {
			c.JSON(http.StatusOK, run)
			return
		}
	}
	writeError(c, http.StatusNotFound, "no runs recorded", nil)
}

// ---------------------------------------------------------------------------
// GET /api/schedule
// ---------------------------------------------------------------------------

func (s *Server) handleSchedule(c *gin.Context) {
	if s.deps.Plan == nil {
		writeError(c, http.StatusNotFound, "no schedule configured", nil)
		return
	}
	resp := gin.H{"plan": s.deps.Plan}
	if s.deps.NextRun != nil {
		if next := s.deps.NextRun(); !next.IsZero() {
			resp["next_run"] = next
		}
	}
	c.JSON(http.StatusOK, resp)
}
