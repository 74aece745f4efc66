package layout

import "github.com/kholin/partita/internal/score"

// Staff-position arithmetic. Position 0 is the bottom line of the five-line
// staff, each step is half a line spacing, the top line is position 8.

// diatonicStep maps a pitch class to its natural scale step (C=0 .. B=6).
// Chromatic pitches take the step of the nearest natural below them, which
// matches how accidentals are drawn against a natural note head.
var diatonicStep = [12]int{0, 0, 1, 1, 2, 3, 3, 4, 4, 5, 5, 6}

const (
	trebleBasePitch = 64 // E4 sits on the bottom line of the treble staff
	bassBasePitch   = 43 // G2 sits on the bottom line of the bass staff
)

func clefBase(clef score.Clef) int {
	if clef == score.ClefBass {
		return bassBasePitch
	}
	return trebleBasePitch
}

// StaffPosition returns the clef-relative staff position for a pitch.
func StaffPosition(pitch int, clef score.Clef) int {
	base := clefBase(clef)
	octaves := pitch/12 - base/12
	return octaves*7 + diatonicStep[((pitch%12)+12)%12] - diatonicStep[base%12]
}

// LedgerLines returns how many ledger lines a staff position needs.
// Positions 0..8 sit on the staff itself and need none.
func LedgerLines(pos int) int {
	var excursion int
	switch {
	case pos < 0:
		excursion = -pos
	case pos > 8:
		excursion = pos - 8
	default:
		return 0
	}
	return (excursion + 1) / 2
}

// StemUp reports the stem direction for a staff position. Notes below the
// middle line point up; the middle line itself points down.
func StemUp(pos int) bool {
	return pos < 4
}
