// Package scoreio decodes score files into validated score values. This is
// the boundary adapter for the layout engine; nothing past Load sees JSON.
package scoreio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kholin/partita/internal/score"
)

type fileScore struct {
	Title           string      `json:"title"`
	Composer        string      `json:"composer"`
	KeySignature    string      `json:"keySignature"`
	BeatsPerMeasure int         `json:"beatsPerMeasure"`
	BeatUnit        int         `json:"beatUnit"`
	Tempo           float64     `json:"tempo"`
	Difficulty      int         `json:"difficulty"`
	Tracks          []fileTrack `json:"tracks"`
}

type fileTrack struct {
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name"`
	Clef     string        `json:"clef"`
	Hand     string        `json:"hand,omitempty"`
	Measures []fileMeasure `json:"measures"`
}

type fileMeasure struct {
	Beats []fileBeat `json:"beats"`
}

type fileBeat struct {
	Index int        `json:"index"`
	Notes []fileNote `json:"notes"`
}

type fileNote struct {
	Pitch        int    `json:"pitch"` // -1 for a rest
	Duration     string `json:"duration"`
	Dots         int    `json:"dots,omitempty"`
	Accidental   string `json:"accidental,omitempty"`
	Lyric        string `json:"lyric,omitempty"`
	Fingering    int    `json:"fingering,omitempty"`
	Articulation string `json:"articulation,omitempty"`
	TieStart     bool   `json:"tieStart,omitempty"`
	TieEnd       bool   `json:"tieEnd,omitempty"`
}

// LoadFile reads and validates a JSON score file.
func LoadFile(path string) (*score.Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Load(r io.Reader) (*score.Score, error) {
	var fs fileScore
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fs); err != nil {
		return nil, err
	}
	if fs.BeatUnit <= 0 {
		fs.BeatUnit = 4
	}
	s := &score.Score{
		Title:    fs.Title,
		Composer: fs.Composer,
		Meta: score.Metadata{
			KeySignature:    fs.KeySignature,
			BeatsPerMeasure: fs.BeatsPerMeasure,
			BeatUnit:        fs.BeatUnit,
			Tempo:           fs.Tempo,
			Difficulty:      fs.Difficulty,
		},
	}
	for ti, ft := range fs.Tracks {
		clef, err := parseClef(ft.Clef)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", ti, err)
		}
		hand, err := parseHand(ft.Hand)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", ti, err)
		}
		tr := score.NewTrack(ft.Name, clef, hand)
		if ft.ID != "" {
			tr.ID = ft.ID
		}
		for mi, fm := range ft.Measures {
			m := score.Measure{Number: mi + 1}
			for _, fb := range fm.Beats {
				b := score.Beat{Index: fb.Index}
				for ni, fn := range fb.Notes {
					n, err := parseNote(fn)
					if err != nil {
						return nil, fmt.Errorf("track %d measure %d note %d: %w", ti, mi+1, ni, err)
					}
					b.Notes = append(b.Notes, n)
				}
				m.Beats = append(m.Beats, b)
			}
			tr.Measures = append(tr.Measures, m)
		}
		s.Tracks = append(s.Tracks, tr)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseNote(fn fileNote) (score.Note, error) {
	d, err := score.ParseDuration(fn.Duration)
	if err != nil {
		return score.Note{}, err
	}
	acc, err := parseAccidental(fn.Accidental)
	if err != nil {
		return score.Note{}, err
	}
	art, err := parseArticulation(fn.Articulation)
	if err != nil {
		return score.Note{}, err
	}
	if fn.Pitch != score.RestPitch && (fn.Pitch < 0 || fn.Pitch > 127) {
		return score.Note{}, fmt.Errorf("pitch %d out of MIDI range", fn.Pitch)
	}
	return score.Note{
		Pitch:        fn.Pitch,
		Duration:     d,
		Dots:         fn.Dots,
		Accidental:   acc,
		Lyric:        fn.Lyric,
		Fingering:    fn.Fingering,
		Articulation: art,
		TieStart:     fn.TieStart,
		TieEnd:       fn.TieEnd,
	}, nil
}

func parseClef(s string) (score.Clef, error) {
	switch s {
	case "", "treble":
		return score.ClefTreble, nil
	case "bass":
		return score.ClefBass, nil
	}
	return score.ClefTreble, fmt.Errorf("unknown clef %q", s)
}

func parseHand(s string) (score.Hand, error) {
	switch s {
	case "", "none":
		return score.HandNone, nil
	case "left":
		return score.HandLeft, nil
	case "right":
		return score.HandRight, nil
	}
	return score.HandNone, fmt.Errorf("unknown hand %q", s)
}

func parseAccidental(s string) (score.Accidental, error) {
	switch s {
	case "":
		return score.AccidentalNone, nil
	case "sharp", "#":
		return score.AccidentalSharp, nil
	case "flat", "b":
		return score.AccidentalFlat, nil
	case "natural":
		return score.AccidentalNatural, nil
	}
	return score.AccidentalNone, fmt.Errorf("unknown accidental %q", s)
}

func parseArticulation(s string) (score.Articulation, error) {
	switch s {
	case "":
		return score.ArticulationNone, nil
	case "staccato":
		return score.ArticulationStaccato, nil
	case "accent":
		return score.ArticulationAccent, nil
	case "tenuto":
		return score.ArticulationTenuto, nil
	}
	return score.ArticulationNone, fmt.Errorf("unknown articulation %q", s)
}
