// Package score holds the immutable score model: metadata, ordered tracks,
// measures, beats and notes. Values are plain data; edits produce new Score
// values rather than mutating in place.
package score

import (
	"fmt"

	"github.com/google/uuid"
)

type Clef int

const (
	ClefTreble Clef = iota
	ClefBass
)

func (c Clef) String() string {
	if c == ClefBass {
		return "bass"
	}
	return "treble"
}

// Hand is a track's hand affinity, used for independent volume routing.
type Hand int

const (
	HandNone Hand = iota
	HandLeft
	HandRight
)

func (h Hand) String() string {
	switch h {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	default:
		return "none"
	}
}

type Accidental int

const (
	AccidentalNone Accidental = iota
	AccidentalSharp
	AccidentalFlat
	AccidentalNatural
)

type Articulation int

const (
	ArticulationNone Articulation = iota
	ArticulationStaccato
	ArticulationAccent
	ArticulationTenuto
)

// RestPitch marks a Note as a rest.
const RestPitch = -1

type Metadata struct {
	KeySignature    string
	BeatsPerMeasure int
	BeatUnit        int
	Tempo           float64 // BPM
	Difficulty      int
}

type Score struct {
	Title    string
	Composer string
	Meta     Metadata
	Tracks   []Track
}

type Track struct {
	ID       string
	Name     string
	Clef     Clef
	Hand     Hand
	Measures []Measure
}

// Measure numbers are 1-based. Beats are keyed by index, not position in
// the slice; a beat index with no entry is a sustained/rest gap.
type Measure struct {
	Number int
	Beats  []Beat
}

type Beat struct {
	Index int
	Notes []Note // simultaneous notes (a chord)
}

type Note struct {
	Pitch        int // MIDI pitch, or RestPitch
	Duration     Duration
	Dots         int
	Accidental   Accidental
	Lyric        string
	Fingering    int
	Articulation Articulation
	TieStart     bool
	TieEnd       bool
}

func (n Note) IsRest() bool { return n.Pitch == RestPitch }

// BeatLength returns the note's length in beats for the given beat unit,
// dots included.
func (n Note) BeatLength(beatUnit int) float64 {
	if beatUnit <= 0 {
		beatUnit = 4
	}
	return n.Duration.Fraction() * float64(beatUnit) * dotFactor(n.Dots)
}

func NewTrack(name string, clef Clef, hand Hand) Track {
	return Track{ID: uuid.NewString(), Name: name, Clef: clef, Hand: hand}
}

func (s *Score) MeasureCount() int {
	if len(s.Tracks) == 0 {
		return 0
	}
	return len(s.Tracks[0].Measures)
}

// TotalBeats returns the beat count of the whole score.
func (s *Score) TotalBeats() float64 {
	return float64(s.MeasureCount() * s.Meta.BeatsPerMeasure)
}

// NominalDuration returns the score length in seconds at its own tempo,
// before any playback speed or tempo override.
func (s *Score) NominalDuration() float64 {
	if s.Meta.Tempo <= 0 {
		return 0
	}
	return s.TotalBeats() * 60.0 / s.Meta.Tempo
}

// IsGrandStaff reports whether the score is a braced treble+bass pair.
func (s *Score) IsGrandStaff() bool {
	if len(s.Tracks) != 2 {
		return false
	}
	a, b := s.Tracks[0].Clef, s.Tracks[1].Clef
	return (a == ClefTreble && b == ClefBass) || (a == ClefBass && b == ClefTreble)
}

// NoteCount counts every note and rest across all tracks.
func (s *Score) NoteCount() int {
	n := 0
	for _, tr := range s.Tracks {
		for _, m := range tr.Measures {
			for _, b := range m.Beats {
				n += len(b.Notes)
			}
		}
	}
	return n
}

// Validate checks the structural invariants the layout engine relies on:
// all tracks carry the same measure count, and beat indices within a
// measure are unique and fall in [0, beatsPerMeasure).
func (s *Score) Validate() error {
	if s.Meta.BeatsPerMeasure <= 0 {
		return fmt.Errorf("score %q: beatsPerMeasure must be positive, got %d", s.Title, s.Meta.BeatsPerMeasure)
	}
	want := -1
	for ti, tr := range s.Tracks {
		if want < 0 {
			want = len(tr.Measures)
		} else if len(tr.Measures) != want {
			return fmt.Errorf("track %d (%s): %d measures, expected %d", ti, tr.Name, len(tr.Measures), want)
		}
		for mi, m := range tr.Measures {
			seen := make(map[int]bool, len(m.Beats))
			for _, b := range m.Beats {
				if b.Index < 0 || b.Index >= s.Meta.BeatsPerMeasure {
					return fmt.Errorf("track %d measure %d: beat index %d out of range [0,%d)", ti, mi+1, b.Index, s.Meta.BeatsPerMeasure)
				}
				if seen[b.Index] {
					return fmt.Errorf("track %d measure %d: duplicate beat index %d", ti, mi+1, b.Index)
				}
				seen[b.Index] = true
			}
		}
	}
	return nil
}
