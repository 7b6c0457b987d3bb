package schedule

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/autoblog/internal/model"
	"github.com/yangwenmai/autoblog/internal/runner"
)

func TestDailyPlan_Default(t *testing.T) {
	plan, err := DailyPlan(15, "08-23", 3)
	require.NoError(t, err)
	assert.Equal(t, []Batch{
		{Hour: 9, Minute: 0, Size: 5},
		{Hour: 13, Minute: 0, Size: 5},
		{Hour: 17, Minute: 0, Size: 5},
	}, plan.Batches)
}

func TestDailyPlan_Remainder(t *testing.T) {
	plan, err := DailyPlan(10, "06-18", 3)
	require.NoError(t, err)
	require.Len(t, plan.Batches, 3)

	sizes := []int{plan.Batches[0].Size, plan.Batches[1].Size, plan.Batches[2].Size}
	assert.Equal(t, []int{4, 3, 3}, sizes)
	assert.Equal(t, 7, plan.Batches[0].Hour)
	assert.Equal(t, 10, plan.Batches[1].Hour)
	assert.Equal(t, 13, plan.Batches[2].Hour)
}

func TestDailyPlan_FewerPostsThanBatches(t *testing.T) {
	plan, err := DailyPlan(2, "08-23", 3)
	require.NoError(t, err)
	require.Len(t, plan.Batches, 2)
	assert.Equal(t, 1, plan.Batches[0].Size)
}

func TestDailyPlan_NarrowWindowSplitsByMinutes(t *testing.T) {
	plan, err := DailyPlan(15, "22-24", 3)
	require.NoError(t, err)
	assert.Equal(t, []Batch{
		{Hour: 23, Minute: 0, Size: 5},
		{Hour: 23, Minute: 20, Size: 5},
		{Hour: 23, Minute: 40, Size: 5},
	}, plan.Batches)

	seen := make(map[string]bool)
	for _, b := range plan.Batches {
		assert.False(t, seen[b.Cron()], "duplicate cron %s", b.Cron())
		seen[b.Cron()] = true
	}
}

func TestDailyPlan_RejectsCollidingBatches(t *testing.T) {
	_, err := DailyPlan(100, "22-23", 90)
	assert.Error(t, err)
}

func TestDailyPlan_Invalid(t *testing.T) {
	for _, hours := range []string{"", "8", "23-08", "ab-cd", "00-25"} {
		_, err := DailyPlan(15, hours, 3)
		assert.Error(t, err, hours)
	}
	_, err := DailyPlan(0, "08-23", 3)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	plan, err := DailyPlan(15, "08-23", 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, plan, "autoblog run")
	out := buf.String()

	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "17:00")
	assert.Contains(t, out, "Active hours: 08-23")
	assert.Contains(t, out, "0 9 * * * autoblog run --limit 5 --publish")
	assert.Contains(t, out, "0 13 * * * autoblog run --limit 5 --publish")
	assert.Equal(t, 3, strings.Count(out, "--publish"))
}

type blockingRunner struct {
	mu      sync.Mutex
	limits  []int
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(_ context.Context, opts runner.Options) (model.RunStats, error) {
	b.mu.Lock()
	b.limits = append(b.limits, opts.Limit)
	b.mu.Unlock()
	if b.started != nil {
		b.started <- struct{}{}
		<-b.release
	}
	return model.RunStats{RunID: "r", ArticlesPublished: opts.Limit}, nil
}

func TestDaemon_TriggerSkipsOverlap(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDaemon(Plan{}, r, runner.Options{BatchSize: 5}, time.UTC, nil)

	done := make(chan bool)
	go func() { done <- d.Trigger(context.Background(), 4) }()
	<-r.started

	assert.False(t, d.Trigger(context.Background(), 6))

	close(r.release)
	assert.True(t, <-done)
	assert.Equal(t, []int{4}, r.limits)
}

func TestDaemon_StartRegistersBatches(t *testing.T) {
	plan, err := DailyPlan(15, "08-23", 3)
	require.NoError(t, err)

	d := NewDaemon(plan, &blockingRunner{}, runner.Options{}, time.UTC, nil)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.Len(t, d.cron.Entries(), 3)
	next := d.Next()
	require.False(t, next.IsZero())
	assert.Contains(t, []int{9, 13, 17}, next.In(time.UTC).Hour())
}

func TestDaemon_StartRejectsBadCron(t *testing.T) {
	d := NewDaemon(Plan{Batches: []Batch{{Hour: 99, Size: 1}}}, &blockingRunner{}, runner.Options{}, time.UTC, nil)
	assert.Error(t, d.Start(context.Background()))
}
