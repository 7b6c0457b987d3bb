// Package schedule spreads the daily post quota over a few batches and runs them with cron.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultBatches is the number of runs per day.
const DefaultBatches = 3

// Batch is one scheduled run.
type Batch struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Size   int `json:"size"`
}

// Cron is the five-field cron expression firing this batch daily.
func (b Batch) Cron() string {
	return fmt.Sprintf("%d %d * * *", b.Minute, b.Hour)
}

// Plan is the daily publishing plan.
type Plan struct {
	PostsPerDay int     `json:"posts_per_day"`
	ActiveHours string  `json:"active_hours"`
	Batches     []Batch `json:"batches"`
}

// ParseActiveHours parses "HH-HH" into a start and end hour with 0 <= start < end <= 24.
func ParseActiveHours(s string) (start, end int, err error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("active hours %q: want HH-HH", s)
	}
	if start, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("active hours %q: %w", s, err)
	}
	if end, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("active hours %q: %w", s, err)
	}
	if start < 0 || end > 24 || start >= end {
		return 0, 0, fmt.Errorf("active hours %q: out of range", s)
	}
	return start, end, nil
}

// DailyPlan splits postsPerDay over batches runs. Earlier batches take the remainder. The first
// batch starts one hour after the window opens and the rest follow every
// (end - first) / batches whole hours. Windows too narrow for a whole hour per batch are split
// by minutes; a plan whose batches would share a minute is rejected.
func DailyPlan(postsPerDay int, activeHours string, batches int) (Plan, error) {
	start, end, err := ParseActiveHours(activeHours)
	if err != nil {
		return Plan{}, err
	}
	if postsPerDay <= 0 {
		return Plan{}, fmt.Errorf("posts per day must be positive, got %d", postsPerDay)
	}
	if batches <= 0 {
		batches = DefaultBatches
	}
	batches = min(batches, postsPerDay)

	first := min(start+1, end-1)
	step := (end - first) / batches * 60
	if step == 0 {
		step = (end - first) * 60 / batches
	}
	if step == 0 {
		return Plan{}, fmt.Errorf("active hours %q cannot hold %d separate batches", activeHours, batches)
	}

	plan := Plan{PostsPerDay: postsPerDay, ActiveHours: activeHours}
	base, extra := postsPerDay/batches, postsPerDay%batches
	for i := 0; i < batches; i++ {
		size := base
		if i < extra {
			size++
		}
		at := first*60 + i*step
		plan.Batches = append(plan.Batches, Batch{Hour: at / 60, Minute: at % 60, Size: size})
	}
	return plan, nil
}
