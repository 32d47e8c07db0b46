package availability

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Slot is a bookable candidate offered to the customer.
type Slot struct {
	Start time.Time
	End   time.Time
}

func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Generator enumerates open slots for a day at a fixed hourly granularity.
type Generator struct {
	policy      *Policy
	granularity int
}

func NewGenerator(policy *Policy, granularityHours int) (*Generator, error) {
	if policy == nil {
		return nil, fmt.Errorf("slot generator: policy required")
	}
	if granularityHours < 1 || granularityHours > 24 {
		return nil, fmt.Errorf("slot generator: granularity must be between 1 and 24 hours, got %d", granularityHours)
	}
	return &Generator{policy: policy, granularity: granularityHours}, nil
}

func (g *Generator) Granularity() time.Duration {
	return time.Duration(g.granularity) * time.Hour
}

// Slots yields the conflict-free [h:00, h+granularity:00) slots of date in
// ascending order. Each range over the sequence recomputes from scratch.
func (g *Generator) Slots(date time.Time, existing []Interval) iter.Seq[Slot] {
	return g.SlotsFor(date, existing, g.Granularity())
}

// SlotsFor is Slots with a service-specific slot length. Start hours still
// step by the granularity; candidates that would run past closing are skipped.
func (g *Generator) SlotsFor(date time.Time, existing []Interval, length time.Duration) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if length <= 0 {
			return
		}
		day := g.policy.Day(date)
		rule := g.policy.RuleFor(day)
		y, m, d := day.Date()

		for h := rule.OpenHour; h+g.granularity <= rule.CloseHour; h += g.granularity {
			start := time.Date(y, m, d, h, 0, 0, 0, g.policy.Location())
			candidate := Interval{Start: start, End: start.Add(length)}

			if !g.policy.IsWithinBusinessHours(day, candidate.Start, candidate.End) {
				continue
			}
			if HasConflict(existing, candidate) {
				continue
			}
			if !yield(Slot(candidate)) {
				return
			}
		}
	}
}

// Available collects Slots into a slice.
func (g *Generator) Available(date time.Time, existing []Interval) []Slot {
	return slices.Collect(g.Slots(date, existing))
}
