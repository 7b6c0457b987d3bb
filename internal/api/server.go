// Package api serves a read-only view of the pipeline: published posts, the ledger, the latest
// run and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
	"github.com/yangwenmai/autoblog/internal/schedule"
	"github.com/yangwenmai/autoblog/internal/store"
)

const shutdownTimeout = 10 * time.Second

// IndexReader reads the homepage index.
type IndexReader interface {
	Load() ([]model.IndexEntry, error)
}

// Ledger is the subset of the store the API reads.
type Ledger interface {
	store.RecordReader
	LatestRun(ctx context.Context) (*store.RunSummary, error)
}

// Deps are the collaborators behind the handlers. Nil fields disable their endpoints.
type Deps struct {
	Index      IndexReader
	Ledger     Ledger
	ReportsDir string
	Metrics    http.Handler
	Plan       *schedule.Plan
	NextRun    func() time.Time
	Version    string
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	deps    Deps
	log     logger.Logger
	engine  *gin.Engine
	started time.Time
}

// New creates a new API server.
func New(deps Deps, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		deps:    deps,
		log:     log.With(logger.Component("api")),
		engine:  gin.New(),
		started: time.Now(),
	}
	s.engine.Use(recoveryMiddleware(s.log), loggerMiddleware(s.log), corsMiddleware("*"))
	s.routes()
	return s
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := s.engine.Group("/api")
	api.GET("/posts", s.handleListPosts)
	api.GET("/records", s.handleListRecords)
	api.GET("/runs/latest", s.handleLatestRun)
	api.GET("/schedule", s.handleSchedule)

	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func loggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			log.Error("HTTP request with errors", append(fields, logger.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("HTTP request", fields...)
	}
}

func recoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("panic recovered",
					logger.String("panic", fmt.Sprint(p)),
					logger.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeError(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}
