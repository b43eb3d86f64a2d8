package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chrizzleybear/piano-midi-practice/internal/engine"
	"github.com/chrizzleybear/piano-midi-practice/internal/theory"
)

func passedResult() engine.RoundResult {
	return engine.RoundResult{
		Round: engine.Round{Kind: engine.RoundInterval, Expected: []theory.PitchClass{4}},
		Positions: []engine.PositionResult{
			{Expected: 4, Observed: 4, Verdict: engine.VerdictCorrect},
		},
		Passed: true,
	}
}

func failedResult(expected, played theory.PitchClass) engine.RoundResult {
	return engine.RoundResult{
		Round: engine.Round{Kind: engine.RoundInterval, Expected: []theory.PitchClass{expected}},
		Positions: []engine.PositionResult{
			{Expected: expected, Observed: played, Verdict: engine.VerdictIncorrect},
		},
	}
}

func escapedResult() engine.RoundResult {
	return engine.RoundResult{
		Round: engine.Round{Kind: engine.RoundScaleAscending, Expected: []theory.PitchClass{0, 2, 4}},
		Positions: []engine.PositionResult{
			{Expected: 0, Observed: 0, Verdict: engine.VerdictCorrect},
			{Expected: 2, Observed: 0, Verdict: engine.VerdictIncorrect},
			{Expected: 4, Observed: -1, Verdict: engine.VerdictExcluded},
		},
		Escaped: true,
	}
}

func TestAggregatorCounters(t *testing.T) {
	a := New()

	a.Record(passedResult())
	a.Record(failedResult(7, 6))
	a.Record(escapedResult())

	snap := a.Snapshot()
	if snap.Attempted != 3 {
		t.Errorf("attempted = %d, want 3", snap.Attempted)
	}
	if snap.Correct != 1 {
		t.Errorf("correct = %d, want 1", snap.Correct)
	}
	if snap.Escaped != 1 {
		t.Errorf("escaped = %d, want 1", snap.Escaped)
	}
	if got := snap.Accuracy(); got < 0.33 || got > 0.34 {
		t.Errorf("accuracy = %f, want 1/3", got)
	}
	// Two incorrect positions, one from the failed round and one from the
	// escaped round. The excluded position must not appear.
	if len(snap.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2 entries", snap.Errors)
	}
}

func TestErrorAggregationAndOrder(t *testing.T) {
	a := New()
	a.Record(failedResult(7, 6))
	a.Record(failedResult(7, 6))
	a.Record(failedResult(2, 1))

	snap := a.Snapshot()
	if len(snap.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2 entries", snap.Errors)
	}
	first := snap.Errors[0]
	if first.Count != 2 || first.Expected != "G" || first.Played != "F#" {
		t.Errorf("most frequent error = %+v, want G/F# x2", first)
	}
	if snap.Errors[1].Count != 1 {
		t.Errorf("second error = %+v, want count 1", snap.Errors[1])
	}
}

func TestAttemptedNeverDecreases(t *testing.T) {
	a := New()
	prev := 0
	results := []engine.RoundResult{passedResult(), escapedResult(), failedResult(4, 3), passedResult()}
	for _, r := range results {
		a.Record(r)
		snap := a.Snapshot()
		if snap.Attempted != prev+1 {
			t.Fatalf("attempted = %d after %d records", snap.Attempted, prev+1)
		}
		prev = snap.Attempted
	}
}

func TestFlatSpellingInErrors(t *testing.T) {
	a := New()
	a.Record(engine.RoundResult{
		Round: engine.Round{Kind: engine.RoundInterval, Expected: []theory.PitchClass{3}, Flats: true},
		Positions: []engine.PositionResult{
			{Expected: 3, Observed: 1, Verdict: engine.VerdictIncorrect},
		},
	})
	snap := a.Snapshot()
	if snap.Errors[0].Expected != "Eb" || snap.Errors[0].Played != "Db" {
		t.Errorf("error spelling = %+v, want flats", snap.Errors[0])
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummaryWidth(&buf, New().Snapshot(), 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Session Statistics") {
		t.Errorf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "No rounds completed.") {
		t.Errorf("missing empty-session line:\n%s", out)
	}
}

func TestRenderSummaryWithMistakes(t *testing.T) {
	a := New()
	a.Record(passedResult())
	a.Record(failedResult(7, 6))

	var buf bytes.Buffer
	if err := RenderSummaryWidth(&buf, a.Snapshot(), 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Rounds attempted: 2",
		"Rounds correct: 1",
		"Accuracy: 50.0%",
		"Mistakes",
		"Expected",
		"G",
		"F#",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Rounds escaped") {
		t.Errorf("escaped line should be omitted when zero:\n%s", out)
	}
}
