package engine

import "time"

// State is the matching state machine's current phase.
type State int

const (
	// StateAwaitingRoot waits for the root confirmation of a new root block.
	StateAwaitingRoot State = iota
	// StateAwaitingNote waits for a single expected pitch class.
	StateAwaitingNote
	// StateAwaitingSequence tracks progress through a multi-position round.
	StateAwaitingSequence
	// StateRoundComplete is terminal; further events are ignored.
	StateRoundComplete
)

// escapeWindow is the coincidence window for the octave escape gesture:
// two note-ons of equal pitch class, raw pitches exactly 12 apart, landing
// within this window end the round early.
const escapeWindow = 100 * time.Millisecond

// Machine consumes note events against one round's expected sequence.
// It is not reentrant: each event is fully processed, including any
// terminal transition, before the next is submitted.
type Machine struct {
	round    Round
	state    State
	deadline time.Duration

	positions []PositionResult
	pos       int

	startedAt    time.Time
	posStartedAt time.Time
	hinted       bool

	lastOn     NoteEvent
	haveLastOn bool

	result *RoundResult
}

// NewMachine builds a machine for one round. A zero deadline disables
// timeout hints. now anchors the round and first-position start times.
func NewMachine(round Round, deadline time.Duration, now time.Time) *Machine {
	positions := make([]PositionResult, len(round.Expected))
	for i, pc := range round.Expected {
		positions[i] = PositionResult{Expected: pc, Observed: -1, ObservedPitch: -1}
	}
	state := StateAwaitingSequence
	switch {
	case round.Kind == RoundRoot:
		state = StateAwaitingRoot
	case len(round.Expected) == 1:
		state = StateAwaitingNote
	}
	return &Machine{
		round:        round,
		state:        state,
		deadline:     deadline,
		positions:    positions,
		startedAt:    now,
		posStartedAt: now,
	}
}

// State returns the machine's current phase.
func (m *Machine) State() State {
	return m.state
}

// Position returns the current 0-based position index.
func (m *Machine) Position() int {
	return m.pos
}

// Round returns the round being matched.
func (m *Machine) Round() Round {
	return m.round
}

// Result returns the terminal result, or nil while the round is open.
func (m *Machine) Result() *RoundResult {
	return m.result
}

// Submit processes one note event and returns the display events it
// produced. Note-offs carry no matching semantics. Events after the round
// is terminal are ignored.
func (m *Machine) Submit(ev NoteEvent) []Event {
	if m.state == StateRoundComplete || ev.Kind != NoteOn {
		return nil
	}

	res := &m.positions[m.pos]
	res.Observed = ev.PitchClass
	res.ObservedPitch = ev.Pitch
	// Malformed pitch classes degrade to a mismatch; the engine never
	// rejects an event outright.
	if ev.PitchClass.IsValid() && ev.PitchClass == res.Expected {
		res.Verdict = VerdictCorrect
	} else {
		res.Verdict = VerdictIncorrect
	}

	events := []Event{{
		Kind:          EventEcho,
		Position:      m.pos,
		Observed:      ev.PitchClass,
		ObservedPitch: ev.Pitch,
	}}
	if m.round.RevealEach() {
		events = append(events, Event{
			Kind:          EventVerdict,
			Position:      m.pos,
			Expected:      res.Expected,
			Observed:      ev.PitchClass,
			ObservedPitch: ev.Pitch,
			Correct:       res.Verdict == VerdictCorrect,
		})
	}

	escaped := m.haveLastOn && isEscapePair(m.lastOn, ev)
	m.lastOn = ev
	m.haveLastOn = true

	m.pos++
	m.hinted = false
	m.posStartedAt = ev.At

	if escaped {
		for i := m.pos; i < len(m.positions); i++ {
			m.positions[i].Verdict = VerdictExcluded
		}
		return append(events, m.complete(ev.At, true))
	}
	if m.pos == len(m.positions) {
		return append(events, m.complete(ev.At, false))
	}
	return events
}

// Tick checks the current position's deadline against now and emits the
// timeout hint at most once per open position. A hint never terminates
// the round.
func (m *Machine) Tick(now time.Time) []Event {
	if m.state == StateRoundComplete || m.deadline == 0 || m.hinted {
		return nil
	}
	if now.Sub(m.posStartedAt) < m.deadline {
		return nil
	}
	m.hinted = true
	return []Event{{
		Kind:     EventHint,
		Position: m.pos,
		Expected: m.positions[m.pos].Expected,
	}}
}

func (m *Machine) complete(at time.Time, escaped bool) Event {
	m.state = StateRoundComplete
	passed := true
	for _, p := range m.positions {
		if p.Verdict == VerdictIncorrect || p.Verdict == VerdictPending {
			passed = false
			break
		}
	}
	result := RoundResult{
		Round:     m.round,
		Positions: append([]PositionResult(nil), m.positions...),
		Passed:    passed,
		Escaped:   escaped,
		Elapsed:   at.Sub(m.startedAt),
	}
	m.result = &result
	return Event{Kind: EventRoundComplete, Result: &result}
}

func isEscapePair(a, b NoteEvent) bool {
	if b.At.Sub(a.At) > escapeWindow {
		return false
	}
	if a.PitchClass != b.PitchClass {
		return false
	}
	diff := a.Pitch - b.Pitch
	return diff == 12 || diff == -12
}
