// Package stats contains session statistics aggregation and reporting.
package stats

import (
	"sort"
	"time"

	"github.com/chrizzleybear/piano-midi-practice/internal/engine"
	"github.com/chrizzleybear/piano-midi-practice/internal/model"
)

type errorKey struct {
	position int
	expected string
	played   string
}

// Aggregator rolls terminal round results into cumulative session
// counters. It has a single-writer contract: only the session's consumer
// loop calls Record, and Snapshot is read after that loop has stopped.
// Counters are monotonic and never rolled back.
type Aggregator struct {
	startedAt time.Time
	attempted int
	correct   int
	escaped   int
	errors    map[errorKey]int
}

// New returns an empty Aggregator anchored at the current time.
func New() *Aggregator {
	return &Aggregator{
		startedAt: time.Now(),
		errors:    map[errorKey]int{},
	}
}

// Record consumes one terminal round result. Attempted always increments
// by exactly one; correct increments iff every non-excluded position was
// correct.
func (a *Aggregator) Record(result engine.RoundResult) {
	a.attempted++
	if result.Passed {
		a.correct++
	}
	if result.Escaped {
		a.escaped++
	}
	for i, p := range result.Positions {
		if p.Verdict != engine.VerdictIncorrect {
			continue
		}
		key := errorKey{
			position: i + 1,
			expected: p.Expected.NameIn(result.Round.Flats),
			played:   p.Observed.NameIn(result.Round.Flats),
		}
		a.errors[key]++
	}
}

// Snapshot returns a read-only copy of the counters for display.
func (a *Aggregator) Snapshot() model.SessionSnapshot {
	errors := make([]model.PositionError, 0, len(a.errors))
	for key, count := range a.errors {
		errors = append(errors, model.PositionError{
			Position: key.position,
			Expected: key.expected,
			Played:   key.played,
			Count:    count,
		})
	}
	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		if errors[i].Position != errors[j].Position {
			return errors[i].Position < errors[j].Position
		}
		if errors[i].Expected != errors[j].Expected {
			return errors[i].Expected < errors[j].Expected
		}
		return errors[i].Played < errors[j].Played
	})
	return model.SessionSnapshot{
		StartedAt: a.startedAt,
		Attempted: a.attempted,
		Correct:   a.correct,
		Escaped:   a.escaped,
		Errors:    errors,
	}
}
