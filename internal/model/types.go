// Package model defines shared data structures.
package model

import "time"

// Practice type selectors.
const (
	PracticeScaleDegree = "scale-degree"
	PracticeMode        = "mode"
)

// Time-pressure levels.
const (
	PressureNone   = "none"
	PressureLow    = "low"
	PressureMedium = "medium"
	PressureHard   = "hard"
)

// Config defines practice settings.
type Config struct {
	Practice string
	Pressure string
	Modes    []string
	Device   string
	Debug    bool
}

// PressureDeadline maps a time-pressure level to the per-position response
// deadline. A zero duration means no deadline.
func PressureDeadline(level string) (time.Duration, bool) {
	switch level {
	case PressureNone:
		return 0, true
	case PressureLow:
		return 15 * time.Second, true
	case PressureMedium:
		return 10 * time.Second, true
	case PressureHard:
		return 5 * time.Second, true
	}
	return 0, false
}

// SessionSnapshot is a read-only view of cumulative session statistics.
type SessionSnapshot struct {
	StartedAt time.Time
	Attempted int
	Correct   int
	Escaped   int
	Errors    []PositionError
}

// Accuracy returns the fraction of attempted rounds that were fully correct.
func (s SessionSnapshot) Accuracy() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempted)
}

// PositionError aggregates one "expected X, played Y" mistake at a given
// round position.
type PositionError struct {
	Position int // 1-based position within the round
	Expected string
	Played   string
	Count    int
}
