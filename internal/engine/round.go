// Package engine implements the practice session core: the matching state
// machine that consumes note events against an expected pitch-class
// sequence, and the session driver that chains rounds together.
package engine

import (
	"time"

	"github.com/chrizzleybear/piano-midi-practice/internal/theory"
)

// RoundKind distinguishes the prompt variants a round can carry.
type RoundKind int

const (
	// RoundRoot confirms the root note at the start of a new root block.
	RoundRoot RoundKind = iota
	// RoundInterval prompts a single scale degree from the current root.
	RoundInterval
	// RoundScaleAscending prompts a full 8-note ascending scale.
	RoundScaleAscending
	// RoundScaleDescending prompts the exact reverse of the ascending scale.
	RoundScaleDescending
)

// Round is one unit of practice: a prompt plus the ordered pitch classes
// the player is expected to produce. Expected is immutable once generated.
type Round struct {
	Kind     RoundKind
	Prompt   string
	Expected []theory.PitchClass
	Flats    bool // spell feedback with flats
}

// RevealEach reports whether per-position verdicts are shown immediately.
// Scale rounds withhold verdicts until the round completes; only position
// numbers are echoed live.
func (r Round) RevealEach() bool {
	return r.Kind == RoundRoot || r.Kind == RoundInterval
}

// NoteKind distinguishes note-on from note-off events.
type NoteKind int

const (
	NoteOn NoteKind = iota
	NoteOff
)

// NoteEvent is a normalized event from the note event source.
type NoteEvent struct {
	Pitch      int
	PitchClass theory.PitchClass
	Velocity   int
	Kind       NoteKind
	At         time.Time
}

// Verdict is the recorded outcome of one round position.
type Verdict int

const (
	// VerdictPending marks a position that has not been played yet.
	VerdictPending Verdict = iota
	// VerdictCorrect marks an exact pitch-class match.
	VerdictCorrect
	// VerdictIncorrect marks a mismatch; the round continues regardless.
	VerdictIncorrect
	// VerdictExcluded marks positions skipped by the escape signal. They
	// count toward neither correct nor incorrect totals.
	VerdictExcluded
)

// PositionResult records what happened at one expected position.
type PositionResult struct {
	Expected      theory.PitchClass
	Observed      theory.PitchClass
	ObservedPitch int
	Verdict       Verdict
}

// RoundResult is the terminal outcome of a round.
type RoundResult struct {
	Round     Round
	Positions []PositionResult
	Passed    bool
	Escaped   bool
	Elapsed   time.Duration
}

// EventKind identifies a display event emitted by the engine.
type EventKind int

const (
	// EventPrompt announces a new round.
	EventPrompt EventKind = iota
	// EventEcho reports that a position was played, without a verdict.
	EventEcho
	// EventVerdict reveals a per-position verdict (immediate-reveal rounds).
	EventVerdict
	// EventHint surfaces the expected note after the position's deadline.
	EventHint
	// EventRoundComplete carries the terminal RoundResult.
	EventRoundComplete
)

// Event is one display event for the rendering collaborator.
type Event struct {
	Kind          EventKind
	Round         Round
	Position      int // 0-based position index
	Expected      theory.PitchClass
	Observed      theory.PitchClass
	ObservedPitch int
	Correct       bool
	Result        *RoundResult
}
