// Package metrics exposes pipeline events as Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yangwenmai/autoblog/internal/events"
)

// Namespace prefixes every metric name.
const Namespace = "autoblog"

// Reporter is an events.Reporter that updates Prometheus collectors.
type Reporter struct {
	ProviderAttempts  *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	Topics            *prometheus.CounterVec
	TopicsDiscovered  prometheus.Counter
	ArticlesGenerated prometheus.Counter
	Runs              *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	RunInProgress     prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewReporter creates and registers the collectors. A nil registerer uses the default one.
func NewReporter(reg prometheus.Registerer) *Reporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Reporter{
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider attempts by stage, provider and result",
		}, []string{"stage", "provider", "result"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fallbacks_total",
			Help:      "Terminal fallbacks taken after every provider of a stage failed",
		}, []string{"stage"}),
		Topics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "topics_processed_total",
			Help:      "Topics processed by outcome",
		}, []string{"outcome"}),
		TopicsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "topics_discovered_total",
			Help:      "Topics returned by discovery",
		}),
		ArticlesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "articles_generated_total",
			Help:      "Articles drafted",
		}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Completed runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
		}),
		RunInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_in_progress",
			Help:      "1 while a run is executing",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_completed_timestamp_seconds",
			Help:      "Unix time the last run completed",
		}),
		starts: make(map[string]time.Time),
	}
}

// Report implements events.Reporter.
func (r *Reporter) Report(e events.Event) {
	switch e.Kind {
	case events.RunStarted:
		r.RunInProgress.Set(1)
		r.mu.Lock()
		r.starts[e.RunID] = e.Time
		r.mu.Unlock()
	case events.TopicsDiscovered:
		r.TopicsDiscovered.Add(float64(e.Count))
	case events.ProviderFailed:
		result := "failure"
		if e.Skipped {
			result = "skipped"
		}
		r.ProviderAttempts.WithLabelValues(e.Stage, e.Provider, result).Inc()
	case events.ProviderUsed:
		r.ProviderAttempts.WithLabelValues(e.Stage, e.Provider, "success").Inc()
	case events.FallbackUsed:
		r.Fallbacks.WithLabelValues(e.Stage).Inc()
	case events.ArticleGenerated:
		r.ArticlesGenerated.Inc()
	case events.TopicCompleted:
		r.Topics.WithLabelValues("completed").Inc()
	case events.TopicFailed:
		r.Topics.WithLabelValues("failed").Inc()
	case events.RunCompleted:
		r.runCompleted(e)
	}
}

func (r *Reporter) runCompleted(e events.Event) {
	status := "success"
	if e.Err != nil {
		status = "error"
	}
	r.Runs.WithLabelValues(status).Inc()
	r.RunInProgress.Set(0)
	r.LastRunTimestamp.Set(float64(e.Time.Unix()))

	r.mu.Lock()
	start, ok := r.starts[e.RunID]
	delete(r.starts, e.RunID)
	r.mu.Unlock()
	if ok {
		r.RunDuration.Observe(e.Time.Sub(start).Seconds())
	}
}
