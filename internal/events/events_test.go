package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yangwenmai/autoblog/internal/logger"
)

func TestMulti_FansOutInOrder(t *testing.T) {
	var got []string
	a := ReporterFunc(func(e Event) { got = append(got, "a:"+string(e.Kind)) })
	b := ReporterFunc(func(e Event) { got = append(got, "b:"+string(e.Kind)) })

	Multi{a, nil, b}.Report(Event{Kind: TopicStarted})

	assert.Equal(t, []string{"a:topic_started", "b:topic_started"}, got)
}

func TestLogReporter_AllKinds(t *testing.T) {
	r := NewLogReporter(logger.NewNop())
	for _, k := range []Kind{RunStarted, PhaseChanged, ProviderFailed, ProviderUsed, FallbackUsed, TopicFailed, RunCompleted} {
		r.Report(Event{Kind: k, Topic: "t", Stage: "draft", Err: errors.New("x"), Count: 1})
	}
	Nop{}.Report(Event{Kind: RunStarted})
}

// levelLogger records the level of each entry.
type levelLogger struct {
	levels []string
}

func (l *levelLogger) Debug(string, ...logger.Field)      { l.levels = append(l.levels, "debug") }
func (l *levelLogger) Info(string, ...logger.Field)       { l.levels = append(l.levels, "info") }
func (l *levelLogger) Warn(string, ...logger.Field)       { l.levels = append(l.levels, "warn") }
func (l *levelLogger) Error(string, ...logger.Field)      { l.levels = append(l.levels, "error") }
func (l *levelLogger) With(...logger.Field) logger.Logger { return l }
func (l *levelLogger) Sync() error                        { return nil }

func TestLogReporter_SkippedProviderAtDebug(t *testing.T) {
	l := &levelLogger{}
	r := NewLogReporter(l)

	r.Report(Event{Kind: ProviderFailed, Provider: "claude", Err: errors.New("missing credentials"), Skipped: true})
	r.Report(Event{Kind: ProviderFailed, Provider: "openai", Err: errors.New("HTTP 500")})
	r.Report(Event{Kind: TopicFailed, Topic: "t", Err: errors.New("no sources")})

	assert.Equal(t, []string{"debug", "warn", "error"}, l.levels)
}
