package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/chrizzleybear/piano-midi-practice/internal/theory"
)

var testBase = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func onAt(pitch int, offset time.Duration) NoteEvent {
	return NoteEvent{
		Pitch:      pitch,
		PitchClass: theory.PitchClassOf(pitch),
		Velocity:   80,
		Kind:       NoteOn,
		At:         testBase.Add(offset),
	}
}

func offAt(pitch int, offset time.Duration) NoteEvent {
	return NoteEvent{
		Pitch:      pitch,
		PitchClass: theory.PitchClassOf(pitch),
		Kind:       NoteOff,
		At:         testBase.Add(offset),
	}
}

func cMajorRound() Round {
	return Round{
		Kind:     RoundScaleAscending,
		Prompt:   "Ionian in C (ascending)",
		Expected: theory.BuildScale(0, mustMode("Ionian")),
	}
}

func mustMode(name string) theory.Mode {
	mode, err := theory.ModeByName(name)
	if err != nil {
		panic(err)
	}
	return mode
}

func TestInitialStates(t *testing.T) {
	cases := []struct {
		name  string
		round Round
		want  State
	}{
		{"root", Round{Kind: RoundRoot, Expected: []theory.PitchClass{0}}, StateAwaitingRoot},
		{"interval", Round{Kind: RoundInterval, Expected: []theory.PitchClass{4}}, StateAwaitingNote},
		{"scale", cMajorRound(), StateAwaitingSequence},
	}
	for _, tc := range cases {
		m := NewMachine(tc.round, 0, testBase)
		if got := m.State(); got != tc.want {
			t.Errorf("%s: initial state = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMismatchThenContinue(t *testing.T) {
	round := Round{
		Kind:     RoundScaleAscending,
		Expected: []theory.PitchClass{0, 2, 4}, // C D E
	}
	m := NewMachine(round, 0, testBase)

	m.Submit(onAt(61, 0))           // C#, wrong
	m.Submit(onAt(62, time.Second)) // D
	m.Submit(onAt(64, 2*time.Second))

	result := m.Result()
	if result == nil {
		t.Fatal("round should be terminal after three events")
	}
	if result.Passed {
		t.Error("round with a mismatch must not pass")
	}
	if v := result.Positions[0].Verdict; v != VerdictIncorrect {
		t.Errorf("position 0 verdict = %v, want incorrect", v)
	}
	if got := result.Positions[0].Observed; got != 1 {
		t.Errorf("position 0 observed = %s, want C#", got.Name())
	}
	for i := 1; i < 3; i++ {
		if v := result.Positions[i].Verdict; v != VerdictCorrect {
			t.Errorf("position %d verdict = %v, want correct", i, v)
		}
	}
}

func TestEscapeSignal(t *testing.T) {
	m := NewMachine(cMajorRound(), 0, testBase)

	m.Submit(onAt(48, 0))                   // C3, matches position 1
	m.Submit(onAt(60, 50*time.Millisecond)) // C4, octave above within window

	result := m.Result()
	if result == nil {
		t.Fatal("escape signal should terminate the round")
	}
	if !result.Escaped {
		t.Error("result should be marked escaped")
	}
	if v := result.Positions[0].Verdict; v != VerdictCorrect {
		t.Errorf("position 0 verdict = %v, want correct", v)
	}
	if v := result.Positions[1].Verdict; v != VerdictIncorrect {
		t.Errorf("position 1 verdict = %v, want incorrect", v)
	}
	for i := 2; i < 8; i++ {
		if v := result.Positions[i].Verdict; v != VerdictExcluded {
			t.Errorf("position %d verdict = %v, want excluded", i, v)
		}
	}
}

func TestEscapeRequiresCoincidence(t *testing.T) {
	m := NewMachine(cMajorRound(), 0, testBase)
	m.Submit(onAt(48, 0))
	m.Submit(onAt(60, 400*time.Millisecond)) // outside the window
	if m.Result() != nil {
		t.Fatal("octave pair outside the coincidence window must not escape")
	}
	if m.Position() != 2 {
		t.Fatalf("position = %d, want 2", m.Position())
	}
}

func TestEscapeRequiresOctave(t *testing.T) {
	m := NewMachine(cMajorRound(), 0, testBase)
	m.Submit(onAt(48, 0))
	m.Submit(onAt(48, 30*time.Millisecond)) // same pitch, not an octave apart
	if m.Result() != nil {
		t.Fatal("repeated identical pitch must not escape")
	}
	m.Submit(onAt(72, 60*time.Millisecond)) // two octaves above the previous note
	if m.Result() != nil {
		t.Fatal("24-semitone gap must not escape")
	}
}

func TestTimeoutHintOncePerPosition(t *testing.T) {
	round := Round{Kind: RoundInterval, Expected: []theory.PitchClass{7}}
	m := NewMachine(round, 5*time.Second, testBase)

	if events := m.Tick(testBase.Add(4 * time.Second)); len(events) != 0 {
		t.Fatalf("hint before deadline: %+v", events)
	}
	events := m.Tick(testBase.Add(6 * time.Second))
	if len(events) != 1 || events[0].Kind != EventHint {
		t.Fatalf("expected exactly one hint event, got %+v", events)
	}
	if events[0].Expected != 7 {
		t.Errorf("hint expected pitch class = %s, want G", events[0].Expected.Name())
	}
	if events := m.Tick(testBase.Add(7 * time.Second)); len(events) != 0 {
		t.Fatalf("hint must be emitted at most once per position, got %+v", events)
	}
	if m.State() == StateRoundComplete {
		t.Fatal("timeout must not terminate the round")
	}

	// The position stays open until a note arrives.
	m.Submit(onAt(67, 10*time.Second))
	if m.Result() == nil {
		t.Fatal("round should complete on the late note")
	}
}

func TestHintResetsOnAdvance(t *testing.T) {
	round := Round{Kind: RoundScaleAscending, Expected: []theory.PitchClass{0, 2}}
	m := NewMachine(round, 5*time.Second, testBase)

	if events := m.Tick(testBase.Add(6 * time.Second)); len(events) != 1 {
		t.Fatalf("expected hint for position 0, got %+v", events)
	}
	m.Submit(onAt(60, 7*time.Second))
	events := m.Tick(testBase.Add(13 * time.Second))
	if len(events) != 1 || events[0].Position != 1 {
		t.Fatalf("expected hint for position 1, got %+v", events)
	}
}

func TestNoteOffIgnored(t *testing.T) {
	round := Round{Kind: RoundInterval, Expected: []theory.PitchClass{0}}
	m := NewMachine(round, 0, testBase)
	if events := m.Submit(offAt(60, 0)); len(events) != 0 {
		t.Fatalf("note-off produced events: %+v", events)
	}
	if m.Position() != 0 {
		t.Fatal("note-off must not advance the position")
	}
}

func TestEventsAfterTerminalIgnored(t *testing.T) {
	round := Round{Kind: RoundInterval, Expected: []theory.PitchClass{0}}
	m := NewMachine(round, 0, testBase)
	m.Submit(onAt(60, 0))
	if m.Result() == nil {
		t.Fatal("round should be terminal")
	}
	if events := m.Submit(onAt(62, time.Second)); len(events) != 0 {
		t.Fatalf("terminal machine produced events: %+v", events)
	}
}

func TestMalformedPitchClassDegradesToMismatch(t *testing.T) {
	round := Round{Kind: RoundInterval, Expected: []theory.PitchClass{0}}
	m := NewMachine(round, 0, testBase)
	m.Submit(NoteEvent{Pitch: 300, PitchClass: 25, Velocity: 80, Kind: NoteOn, At: testBase})
	result := m.Result()
	if result == nil {
		t.Fatal("malformed event should still resolve the position")
	}
	if v := result.Positions[0].Verdict; v != VerdictIncorrect {
		t.Errorf("verdict = %v, want incorrect", v)
	}
}

func TestDeterministicReplay(t *testing.T) {
	events := []NoteEvent{
		onAt(48, 0),
		onAt(62, time.Second),
		onAt(65, 2*time.Second), // wrong
		onAt(65, 3*time.Second),
		onAt(67, 4*time.Second),
		onAt(69, 5*time.Second),
		onAt(71, 6*time.Second),
		onAt(72, 7*time.Second),
	}
	run := func() *RoundResult {
		m := NewMachine(cMajorRound(), 10*time.Second, testBase)
		for _, ev := range events {
			m.Submit(ev)
		}
		return m.Result()
	}
	first := run()
	second := run()
	if first == nil || second == nil {
		t.Fatal("both replays should be terminal")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDeferredRevealForScaleRounds(t *testing.T) {
	m := NewMachine(cMajorRound(), 0, testBase)
	events := m.Submit(onAt(48, 0))
	for _, ev := range events {
		if ev.Kind == EventVerdict {
			t.Fatal("scale rounds must not reveal per-position verdicts live")
		}
	}
	interval := NewMachine(Round{Kind: RoundInterval, Expected: []theory.PitchClass{0}}, 0, testBase)
	sawVerdict := false
	for _, ev := range interval.Submit(onAt(60, 0)) {
		if ev.Kind == EventVerdict {
			sawVerdict = true
		}
	}
	if !sawVerdict {
		t.Fatal("interval rounds must reveal verdicts immediately")
	}
}
