// Package prompt generates randomized practice rounds.
package prompt

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/chrizzleybear/piano-midi-practice/internal/engine"
	"github.com/chrizzleybear/piano-midi-practice/internal/model"
	"github.com/chrizzleybear/piano-midi-practice/internal/theory"
)

// Generator produces the next round's expected sequence and display
// metadata. It implements engine.RoundSource.
type Generator struct {
	rnd      *rand.Rand
	practice string
	enabled  []theory.Mode

	root      theory.PitchClass
	haveRoot  bool
	remaining int
	lastLabel string
}

// New returns a Generator seeded with the current time.
func New(practice string, enabled []theory.Mode) *Generator {
	return NewWithSource(practice, enabled, rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Generator with an explicit random source, which
// makes the prompt stream deterministic under test.
func NewWithSource(practice string, enabled []theory.Mode, src rand.Source) *Generator {
	return &Generator{
		rnd:      rand.New(src),
		practice: practice,
		enabled:  append([]theory.Mode(nil), enabled...),
	}
}

// Next returns the next rounds to practice: a single root or interval
// round in scale-degree practice, an ascending/descending pair in mode
// practice.
func (g *Generator) Next() []engine.Round {
	if g.practice == model.PracticeMode {
		return g.nextModeRounds()
	}
	return g.nextScaleDegreeRounds()
}

// nextScaleDegreeRounds keeps one root for 5-7 interval prompts, then
// redraws a different root and starts the block with a root confirmation.
func (g *Generator) nextScaleDegreeRounds() []engine.Round {
	if !g.haveRoot || g.remaining == 0 {
		prev := g.root
		root := theory.PitchClass(g.rnd.Intn(12))
		for g.haveRoot && root == prev {
			root = theory.PitchClass(g.rnd.Intn(12))
		}
		g.root = root
		g.haveRoot = true
		g.remaining = 5 + g.rnd.Intn(3)
		g.lastLabel = ""
		flats := theory.UseFlats(root)
		return []engine.Round{{
			Kind:     engine.RoundRoot,
			Prompt:   fmt.Sprintf("New root note: play %s", root.NameIn(flats)),
			Expected: []theory.PitchClass{root},
			Flats:    flats,
		}}
	}

	g.remaining--
	labels := theory.PracticeLabels()
	label := labels[g.rnd.Intn(len(labels))]
	for label == g.lastLabel {
		label = labels[g.rnd.Intn(len(labels))]
	}
	g.lastLabel = label
	// Labels come from the canonical table, so the lookup cannot fail.
	pc, _ := theory.IntervalPitchClass(g.root, label)
	flats := theory.UseFlats(g.root)
	return []engine.Round{{
		Kind:     engine.RoundInterval,
		Prompt:   fmt.Sprintf("Play the %s (from %s)", label, g.root.NameIn(flats)),
		Expected: []theory.PitchClass{pc},
		Flats:    flats,
	}}
}

func (g *Generator) nextModeRounds() []engine.Round {
	mode := g.enabled[g.rnd.Intn(len(g.enabled))]
	root := theory.PitchClass(g.rnd.Intn(12))
	flats := theory.UseFlats(root)
	ascending := theory.BuildScale(root, mode)
	descending := make([]theory.PitchClass, len(ascending))
	for i, pc := range ascending {
		descending[len(ascending)-1-i] = pc
	}
	name := root.NameIn(flats)
	return []engine.Round{
		{
			Kind:     engine.RoundScaleAscending,
			Prompt:   fmt.Sprintf("%s in %s (ascending)", mode.Name, name),
			Expected: ascending,
			Flats:    flats,
		},
		{
			Kind:     engine.RoundScaleDescending,
			Prompt:   fmt.Sprintf("%s in %s (descending)", mode.Name, name),
			Expected: descending,
			Flats:    flats,
		},
	}
}
