package layout

import (
	"github.com/kholin/partita/internal/geom"
	"github.com/kholin/partita/internal/score"
)

// Result is the geometric output of one layout pass. It is built wholesale
// by Calculate and never mutated afterwards; renderers and the playback
// scheduler share one instance without copying.
type Result struct {
	Lines    []Line
	Measures []MeasureBox // indexed by 0-based measure number
	Notes    []NoteLayout
	Beams    []BeamGroup
	Ties     []Tie

	Tracks    []TrackInfo
	BeatTimes []BeatTime

	// Derived scalars.
	Height        float64
	KeyboardY     float64 // vertical offset of the keyboard strip, 0 if disabled
	BPM           float64 // score tempo the start times were computed at
	TotalDuration float64 // seconds at the score tempo
}

// Line is one wrapped system: a contiguous run of measures at a vertical
// offset. A grand staff consumes two staff blocks per line.
type Line struct {
	FirstMeasure int // measure index, 0-based
	MeasureCount int
	Y            float64
	Height       float64
	Braced       bool // grand staff: draw brace and span barlines across staves
}

type MeasureBox struct {
	X     float64
	Width float64
	Line  int
}

// NoteLayout places one sounding note or rest. StartTime is fixed at the
// score's own tempo; playback speed never rewrites it.
type NoteLayout struct {
	Track, Measure, Beat, Note int // indices back into the score

	X, Y          float64
	StaffPosition int
	Ledger        int
	StemUp        bool
	HasStem       bool
	StemX         float64
	StemTipY      float64
	Beam          int // index into Beams, -1 if unbeamed

	Pitch     int
	Rest      bool
	StartTime float64 // seconds
	Duration  float64 // seconds
}

// BeamGroup is a run of short-duration notes sharing one slanted beam.
type BeamGroup struct {
	Start, End geom.Point // stem tips of the first and last member
	Notes      []int      // indices into Result.Notes
	Beams      int        // beam line count (1 = eighths, 2 = sixteenths, ...)
}

// Tie is a cubic curve between a tied note pair.
type Tie struct {
	From, To       int // indices into Result.Notes
	P0, P1, P2, P3 geom.Point
}

type TrackInfo struct {
	Name string
	Clef score.Clef
	Hand score.Hand
}

// BeatTime marks one beat boundary for the metronome. Strong is true on the
// first beat of a measure.
type BeatTime struct {
	Time    float64
	Measure int
	Strong  bool
}

// HitTest returns the index of the note layout whose head box contains the
// point, breaking ties by Euclidean distance to the head center. Returns
// -1 when nothing is under the point.
func (r *Result) HitTest(p geom.Point, headRadius float64) int {
	best := -1
	bestDist := 0.0
	for i := range r.Notes {
		n := &r.Notes[i]
		box := geom.Rect{X: n.X - headRadius, Y: n.Y - headRadius, W: 2 * headRadius, H: 2 * headRadius}
		if !box.Contains(p) {
			continue
		}
		d := geom.Dist(p, geom.Point{X: n.X, Y: n.Y})
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// MeasureStart returns the start time of a measure's first beat, clamped to
// the score bounds.
func (r *Result) MeasureStart(index int) float64 {
	if len(r.BeatTimes) == 0 {
		return 0
	}
	for _, bt := range r.BeatTimes {
		if bt.Measure >= index {
			return bt.Time
		}
	}
	return r.TotalDuration
}
