// Package theory provides pitch-class arithmetic, interval tables, and
// mode/scale generation.
package theory

import "fmt"

// PitchClass is a note identity modulo octave, in [0, 11].
type PitchClass int

// IsValid reports whether pc is inside the chromatic range.
func (pc PitchClass) IsValid() bool {
	return pc >= 0 && pc <= 11
}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// Flat-side roots: F, Bb, Eb, Ab, Db. Rounds rooted on these spell
// accidentals as flats; everything else uses sharps.
var flatKeys = map[PitchClass]bool{1: true, 3: true, 5: true, 8: true, 10: true}

// PitchClassOf collapses a raw MIDI pitch to its pitch class.
func PitchClassOf(pitch int) PitchClass {
	return PitchClass(((pitch % 12) + 12) % 12)
}

// Name returns the canonical sharp spelling, or "?" for out-of-range values.
func (pc PitchClass) Name() string {
	return pc.NameIn(false)
}

// NameIn returns the sharp or flat spelling of the pitch class.
func (pc PitchClass) NameIn(flats bool) string {
	if !pc.IsValid() {
		return "?"
	}
	if flats {
		return flatNames[pc]
	}
	return sharpNames[pc]
}

// UseFlats reports whether a round rooted on pc should spell accidentals
// as flats.
func UseFlats(root PitchClass) bool {
	return flatKeys[root]
}

// ParseNote converts a note name in sharp or flat notation to a pitch class.
func ParseNote(name string) (PitchClass, error) {
	for i, n := range sharpNames {
		if n == name {
			return PitchClass(i), nil
		}
	}
	for i, n := range flatNames {
		if n == name {
			return PitchClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown note name %q", name)
}

// intervalSemitones maps scale-degree labels to semitone offsets from the
// root. b5/#5 are accepted as enharmonic aliases of #4/b6.
var intervalSemitones = map[string]int{
	"1":  0,
	"b2": 1,
	"2":  2,
	"b3": 3,
	"3":  4,
	"4":  5,
	"#4": 6,
	"b5": 6,
	"5":  7,
	"#5": 8,
	"b6": 8,
	"6":  9,
	"b7": 10,
	"7":  11,
}

// intervalLabels is the canonical ordered table: 7 natural degrees plus
// 5 alterations.
var intervalLabels = []string{"1", "b2", "2", "b3", "3", "4", "#4", "5", "b6", "6", "b7", "7"}

// IntervalLabels returns the 12 canonical interval labels in chromatic order.
func IntervalLabels() []string {
	return append([]string(nil), intervalLabels...)
}

// PracticeLabels returns the interval labels used for prompting. The root
// itself is excluded; it is confirmed once per root block instead.
func PracticeLabels() []string {
	labels := make([]string, 0, len(intervalLabels)-1)
	for _, l := range intervalLabels {
		if l != "1" {
			labels = append(labels, l)
		}
	}
	return labels
}

// IntervalSemitones returns the semitone offset for an interval label.
func IntervalSemitones(label string) (int, error) {
	off, ok := intervalSemitones[label]
	if !ok {
		return 0, fmt.Errorf("unknown interval label %q", label)
	}
	return off, nil
}

// IntervalPitchClass returns the pitch class an interval away from root.
func IntervalPitchClass(root PitchClass, label string) (PitchClass, error) {
	off, err := IntervalSemitones(label)
	if err != nil {
		return 0, err
	}
	return PitchClass((int(root) + off) % 12), nil
}

// Mode is one of the seven diatonic rotations of the major scale, defined
// by its whole/half step pattern. The seven steps always sum to 12.
type Mode struct {
	Name  string
	Steps [7]int
}

var modes = []Mode{
	{Name: "Ionian", Steps: [7]int{2, 2, 1, 2, 2, 2, 1}},
	{Name: "Dorian", Steps: [7]int{2, 1, 2, 2, 2, 1, 2}},
	{Name: "Phrygian", Steps: [7]int{1, 2, 2, 2, 1, 2, 2}},
	{Name: "Lydian", Steps: [7]int{2, 2, 2, 1, 2, 2, 1}},
	{Name: "Mixolydian", Steps: [7]int{2, 2, 1, 2, 2, 1, 2}},
	{Name: "Aeolian", Steps: [7]int{2, 1, 2, 2, 1, 2, 2}},
	{Name: "Locrian", Steps: [7]int{1, 2, 2, 1, 2, 2, 2}},
}

// Modes returns the seven diatonic modes, Ionian through Locrian.
func Modes() []Mode {
	return append([]Mode(nil), modes...)
}

// ModeByName looks up a mode by its name.
func ModeByName(name string) (Mode, error) {
	for _, m := range modes {
		if m.Name == name {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("unknown mode %q", name)
}

// BuildScale applies the mode's step pattern cumulatively from the root.
// The result has 8 positions; the last repeats the root an octave up,
// collapsed to its pitch class.
func BuildScale(root PitchClass, mode Mode) []PitchClass {
	scale := make([]PitchClass, 0, 8)
	scale = append(scale, root)
	cur := int(root)
	for _, step := range mode.Steps {
		cur += step
		scale = append(scale, PitchClass(cur%12))
	}
	return scale
}
