package score

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func demoScore() *Score {
	sc := &Score{
		Title: "demo",
		Meta:  Metadata{BeatsPerMeasure: 4, BeatUnit: 4, Tempo: 120},
	}
	tr := NewTrack("melody", ClefTreble, HandRight)
	for m := 0; m < 2; m++ {
		ms := Measure{Number: m + 1}
		for b := 0; b < 4; b++ {
			ms.Beats = append(ms.Beats, Beat{Index: b, Notes: []Note{{Pitch: 60, Duration: Quarter}}})
		}
		tr.Measures = append(tr.Measures, ms)
	}
	sc.Tracks = []Track{tr}
	return sc
}

func TestNominalDuration(t *testing.T) {
	sc := demoScore()
	if !approx(sc.NominalDuration(), 4.0) {
		t.Fatalf("duration = %v, want 4.0 (8 beats at 120 BPM)", sc.NominalDuration())
	}
	sc.Meta.Tempo = 60
	if !approx(sc.NominalDuration(), 8.0) {
		t.Fatalf("duration at 60 BPM = %v, want 8.0", sc.NominalDuration())
	}
	sc.Meta.Tempo = 0
	if sc.NominalDuration() != 0 {
		t.Fatalf("duration without tempo = %v, want 0", sc.NominalDuration())
	}
}

func TestCounts(t *testing.T) {
	sc := demoScore()
	if sc.MeasureCount() != 2 {
		t.Errorf("measures = %d, want 2", sc.MeasureCount())
	}
	if sc.NoteCount() != 8 {
		t.Errorf("notes = %d, want 8", sc.NoteCount())
	}
	if sc.TotalBeats() != 8 {
		t.Errorf("beats = %v, want 8", sc.TotalBeats())
	}
}

func TestIsGrandStaff(t *testing.T) {
	sc := demoScore()
	if sc.IsGrandStaff() {
		t.Error("single track reported as grand staff")
	}
	sc.Tracks = append(sc.Tracks, NewTrack("left", ClefBass, HandLeft))
	sc.Tracks[1].Measures = make([]Measure, 2)
	if !sc.IsGrandStaff() {
		t.Error("treble+bass pair not reported as grand staff")
	}
	sc.Tracks[1].Clef = ClefTreble
	if sc.IsGrandStaff() {
		t.Error("treble+treble pair reported as grand staff")
	}
}

func TestValidate(t *testing.T) {
	if err := demoScore().Validate(); err != nil {
		t.Fatalf("valid score rejected: %v", err)
	}

	sc := demoScore()
	sc.Meta.BeatsPerMeasure = 0
	if err := sc.Validate(); err == nil {
		t.Error("zero beatsPerMeasure accepted")
	}

	sc = demoScore()
	sc.Tracks = append(sc.Tracks, Track{Name: "odd", Measures: make([]Measure, 3)})
	if err := sc.Validate(); err == nil {
		t.Error("mismatched measure counts accepted")
	}

	sc = demoScore()
	sc.Tracks[0].Measures[0].Beats[1].Index = 0 // duplicates beat 0
	if err := sc.Validate(); err == nil {
		t.Error("duplicate beat index accepted")
	}

	sc = demoScore()
	sc.Tracks[0].Measures[0].Beats[0].Index = 7 // past beatsPerMeasure
	if err := sc.Validate(); err == nil {
		t.Error("out of range beat index accepted")
	}
}

func TestBeatLength(t *testing.T) {
	cases := []struct {
		note Note
		want float64
	}{
		{Note{Duration: Quarter}, 1},
		{Note{Duration: Half}, 2},
		{Note{Duration: Whole}, 4},
		{Note{Duration: Eighth}, 0.5},
		{Note{Duration: Quarter, Dots: 1}, 1.5},
		{Note{Duration: Half, Dots: 2}, 3.5},
	}
	for _, tc := range cases {
		if got := tc.note.BeatLength(4); !approx(got, tc.want) {
			t.Errorf("BeatLength(%s, %d dots) = %v, want %v", tc.note.Duration, tc.note.Dots, got, tc.want)
		}
	}
}

func TestDurationBeams(t *testing.T) {
	cases := map[Duration]int{
		Whole: 0, Half: 0, Quarter: 0,
		Eighth: 1, Sixteenth: 2, ThirtySecond: 3,
	}
	for d, want := range cases {
		if got := d.Beams(); got != want {
			t.Errorf("%s.Beams() = %d, want %d", d, got, want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Duration
	}{
		{"whole", Whole},
		{"quarter", Quarter},
		{"8th", Eighth},
		{"16th", Sixteenth},
		{"32nd", ThirtySecond},
		{"thirty-second", ThirtySecond},
	} {
		got, err := ParseDuration(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseDuration(%q) = (%v, %v), want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseDuration("breve"); err == nil {
		t.Error("unknown duration accepted")
	}
}

func TestNewTrackAssignsID(t *testing.T) {
	a := NewTrack("a", ClefTreble, HandNone)
	b := NewTrack("b", ClefBass, HandLeft)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("track IDs not unique: %q vs %q", a.ID, b.ID)
	}
}

func TestRest(t *testing.T) {
	if !(Note{Pitch: RestPitch}).IsRest() {
		t.Error("RestPitch note not a rest")
	}
	if (Note{Pitch: 60}).IsRest() {
		t.Error("pitched note reported as rest")
	}
}
