package runner

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DelayKind selects which pause the scheduler is about to take.
type DelayKind int

const (
	// ItemDelay separates two articles within a batch.
	ItemDelay DelayKind = iota
	// BatchDelay separates two batches.
	BatchDelay
)

func (k DelayKind) String() string {
	if k == BatchDelay {
		return "batch"
	}
	return "item"
}

// DelayPolicy decides how long to pause between publishes.
type DelayPolicy interface {
	NextDelay(kind DelayKind) time.Duration
}

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// DefaultItemRange and DefaultBatchRange pace a publishing run.
var (
	DefaultItemRange  = Range{Min: 30 * time.Second, Max: 90 * time.Second}
	DefaultBatchRange = Range{Min: 180 * time.Second, Max: 300 * time.Second}
)

// RandomDelays draws uniformly from a range per kind, at whole-second granularity.
type RandomDelays struct {
	item  Range
	batch Range

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDelays creates a policy. Inverted ranges are swapped.
func NewRandomDelays(item, batch Range) *RandomDelays {
	return &RandomDelays{
		item:  normalizeRange(item),
		batch: normalizeRange(batch),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *RandomDelays) NextDelay(kind DelayKind) time.Duration {
	r := d.item
	if kind == BatchDelay {
		r = d.batch
	}
	span := int64((r.Max - r.Min) / time.Second)
	if span <= 0 {
		return r.Min
	}
	d.mu.Lock()
	n := d.rng.Int63n(span + 1)
	d.mu.Unlock()
	return r.Min + time.Duration(n)*time.Second
}

func normalizeRange(r Range) Range {
	if r.Min < 0 {
		r.Min = 0
	}
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
	}
	if r.Min < 0 {
		r.Min = 0
	}
	return r
}

// NoDelays never pauses.
type NoDelays struct{}

func (NoDelays) NextDelay(DelayKind) time.Duration { return 0 }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
