package layout

import (
	"testing"

	"github.com/kholin/partita/internal/score"
)

func TestStaffPositionTreble(t *testing.T) {
	cases := []struct {
		pitch int
		want  int
	}{
		{64, 0}, // E4, bottom line
		{65, 1}, // F4
		{67, 2}, // G4
		{69, 3}, // A4
		{71, 4}, // B4, middle line
		{72, 5}, // C5
		{77, 8}, // F5, top line
		{60, -2}, // middle C, one ledger below
		{79, 9},  // G5, first position above
		{66, 1},  // F#4 shares F4's position
		{61, -2}, // C#4 shares C4's position
	}
	for _, tc := range cases {
		if got := StaffPosition(tc.pitch, score.ClefTreble); got != tc.want {
			t.Errorf("StaffPosition(%d, treble) = %d, want %d", tc.pitch, got, tc.want)
		}
	}
}

func TestStaffPositionBass(t *testing.T) {
	cases := []struct {
		pitch int
		want  int
	}{
		{43, 0}, // G2, bottom line
		{45, 1}, // A2
		{47, 2}, // B2
		{48, 3}, // C3
		{50, 4}, // D3, middle line
		{57, 8}, // A3, top line
		{60, 10}, // middle C, one ledger above
		{40, -2}, // E2, one ledger below
	}
	for _, tc := range cases {
		if got := StaffPosition(tc.pitch, score.ClefBass); got != tc.want {
			t.Errorf("StaffPosition(%d, bass) = %d, want %d", tc.pitch, got, tc.want)
		}
	}
}

func TestStaffPositionMonotonic(t *testing.T) {
	for _, clef := range []score.Clef{score.ClefTreble, score.ClefBass} {
		prev := StaffPosition(20, clef)
		for pitch := 21; pitch <= 108; pitch++ {
			pos := StaffPosition(pitch, clef)
			if pos < prev {
				t.Fatalf("StaffPosition(%d, %s) = %d dropped below %d", pitch, clef, pos, prev)
			}
			prev = pos
		}
	}
}

func TestLedgerLines(t *testing.T) {
	cases := []struct {
		pos  int
		want int
	}{
		{0, 0}, {4, 0}, {8, 0},
		{-1, 1}, {-2, 1}, {-3, 2}, {-4, 2},
		{9, 1}, {10, 1}, {11, 2}, {12, 2},
	}
	for _, tc := range cases {
		if got := LedgerLines(tc.pos); got != tc.want {
			t.Errorf("LedgerLines(%d) = %d, want %d", tc.pos, got, tc.want)
		}
	}
}

func TestStemDirection(t *testing.T) {
	for pos := -4; pos < 4; pos++ {
		if !StemUp(pos) {
			t.Errorf("StemUp(%d) = false, want up below the middle line", pos)
		}
	}
	// The middle line and everything above point down.
	for pos := 4; pos <= 12; pos++ {
		if StemUp(pos) {
			t.Errorf("StemUp(%d) = true, want down", pos)
		}
	}
}
