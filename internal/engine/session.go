package engine

import "time"

// RoundSource supplies the next rounds to practice. A source returns one
// round for scale-degree prompts and an ascending/descending pair for
// mode prompts.
type RoundSource interface {
	Next() []Round
}

// Recorder consumes terminal round results. It is called exactly once per
// terminal round, before the next round starts.
type Recorder interface {
	Record(RoundResult)
}

// Session chains rounds from a source through matching machines and hands
// terminal results to the recorder. It is driven by a single consumer
// loop: Submit and Tick must not be called concurrently.
type Session struct {
	source   RoundSource
	recorder Recorder
	deadline time.Duration

	queue   []Round
	machine *Machine
}

// NewSession builds a session. A zero deadline disables timeout hints.
func NewSession(source RoundSource, recorder Recorder, deadline time.Duration) *Session {
	return &Session{source: source, recorder: recorder, deadline: deadline}
}

// Start pulls the first round and returns its prompt event. Calling Start
// twice restarts on a fresh round without recording the abandoned one.
func (s *Session) Start(now time.Time) []Event {
	return s.advance(now)
}

// Current returns the active round, if any.
func (s *Session) Current() (Round, bool) {
	if s.machine == nil {
		return Round{}, false
	}
	return s.machine.Round(), true
}

// Position returns the active round's current 0-based position.
func (s *Session) Position() int {
	if s.machine == nil {
		return 0
	}
	return s.machine.Position()
}

// Submit feeds one note event into the active round. When the round
// reaches a terminal state its result is recorded and the next round's
// prompt is appended to the returned events.
func (s *Session) Submit(ev NoteEvent) []Event {
	if s.machine == nil {
		return nil
	}
	events := s.machine.Submit(ev)
	if result := s.machine.Result(); result != nil {
		s.recorder.Record(*result)
		s.afterRound(*result)
		events = append(events, s.advance(ev.At)...)
	}
	return events
}

// Tick forwards a deadline check to the active round.
func (s *Session) Tick(now time.Time) []Event {
	if s.machine == nil {
		return nil
	}
	return s.machine.Tick(now)
}

// afterRound applies the sequencing rules that depend on how a round
// ended: a missed root confirmation is re-prompted, and a failed or
// escaped ascending scale drops its queued descending partner.
func (s *Session) afterRound(result RoundResult) {
	switch result.Round.Kind {
	case RoundRoot:
		if !result.Passed {
			s.queue = append([]Round{result.Round}, s.queue...)
		}
	case RoundScaleAscending:
		if !result.Passed || result.Escaped {
			if len(s.queue) > 0 && s.queue[0].Kind == RoundScaleDescending {
				s.queue = s.queue[1:]
			}
		}
	}
}

func (s *Session) advance(now time.Time) []Event {
	if len(s.queue) == 0 {
		s.queue = s.source.Next()
	}
	if len(s.queue) == 0 {
		s.machine = nil
		return nil
	}
	round := s.queue[0]
	s.queue = s.queue[1:]
	s.machine = NewMachine(round, s.deadline, now)
	return []Event{{Kind: EventPrompt, Round: round}}
}
