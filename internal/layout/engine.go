// Package layout converts a score plus an available width into concrete
// geometry: wrapped lines, per-note positions, beams, ties and ledger
// counts. Calculate is pure; a new Result is built on every call.
package layout

import (
	"sort"

	"github.com/kholin/partita/internal/geom"
	"github.com/kholin/partita/internal/score"
)

// Calculate lays out the whole score for the given width. A zero or
// negative width, or an empty score, yields empty geometry rather than an
// error; rendering nothing is the degraded mode for bad input here.
func Calculate(sc *score.Score, cfg Config, availableWidth float64) *Result {
	tempo := sc.Meta.Tempo
	if tempo <= 0 {
		tempo = 120
	}
	res := &Result{BPM: tempo}
	for _, tr := range sc.Tracks {
		res.Tracks = append(res.Tracks, TrackInfo{Name: tr.Name, Clef: tr.Clef, Hand: tr.Hand})
	}

	measureCount := sc.MeasureCount()
	beatsPerMeasure := sc.Meta.BeatsPerMeasure
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = 4
	}
	if availableWidth <= 0 || measureCount == 0 || len(sc.Tracks) == 0 {
		return res
	}

	secPerBeat := 60.0 / tempo
	res.TotalDuration = float64(measureCount*beatsPerMeasure) * secPerBeat

	wrapLines(res, sc, cfg, availableWidth, measureCount, beatsPerMeasure)
	placeNotes(res, sc, cfg, beatsPerMeasure, secPerBeat)
	buildBeams(res, sc, cfg)
	buildTies(res, sc, cfg)

	for m := 0; m < measureCount; m++ {
		for b := 0; b < beatsPerMeasure; b++ {
			res.BeatTimes = append(res.BeatTimes, BeatTime{
				Time:    float64(m*beatsPerMeasure+b) * secPerBeat,
				Measure: m,
				Strong:  b == 0,
			})
		}
	}

	if len(res.Lines) > 0 {
		last := res.Lines[len(res.Lines)-1]
		res.Height = last.Y + last.Height
	}
	if cfg.KeyboardHeight > 0 {
		res.KeyboardY = res.Height
		res.Height += cfg.KeyboardHeight
	}
	return res
}

// wrapLines packs measures greedily into lines. A measure is never split;
// a line always takes at least one measure even when it overflows.
func wrapLines(res *Result, sc *score.Score, cfg Config, availableWidth float64, measureCount, beatsPerMeasure int) {
	minMeasureWidth := cfg.MinBeatWidth*float64(beatsPerMeasure) + 2*cfg.MeasurePadding
	lineHeight := cfg.trackBlockHeight()*float64(len(sc.Tracks)) - cfg.StaffGap
	braced := sc.IsGrandStaff()

	res.Measures = make([]MeasureBox, measureCount)
	y := cfg.TopPadding
	first := 0
	for first < measureCount {
		count := 1
		for first+count < measureCount && float64(count+1)*minMeasureWidth <= availableWidth {
			count++
		}
		line := Line{FirstMeasure: first, MeasureCount: count, Y: y, Height: lineHeight, Braced: braced}

		// Full lines stretch to the available width; the last line keeps
		// the natural measure width.
		w := minMeasureWidth
		if first+count < measureCount {
			w = availableWidth / float64(count)
		}
		x := 0.0
		for i := 0; i < count; i++ {
			res.Measures[first+i] = MeasureBox{X: x, Width: w, Line: len(res.Lines)}
			x += w
		}
		res.Lines = append(res.Lines, line)
		y += lineHeight + cfg.SystemGap
		first += count
	}
}

func sortedBeats(m score.Measure) []score.Beat {
	beats := make([]score.Beat, len(m.Beats))
	copy(beats, m.Beats)
	sort.Slice(beats, func(i, j int) bool { return beats[i].Index < beats[j].Index })
	return beats
}

func placeNotes(res *Result, sc *score.Score, cfg Config, beatsPerMeasure int, secPerBeat float64) {
	for ti, tr := range sc.Tracks {
		trackTop := float64(ti) * cfg.trackBlockHeight()
		staffBottom := trackTop + cfg.staffHeight()
		for mi := 0; mi < len(tr.Measures) && mi < len(res.Measures); mi++ {
			box := res.Measures[mi]
			lineY := res.Lines[box.Line].Y
			slot := (box.Width - 2*cfg.MeasurePadding) / float64(beatsPerMeasure)
			for _, beat := range sortedBeats(tr.Measures[mi]) {
				start := float64(mi*beatsPerMeasure+beat.Index) * secPerBeat
				x := box.X + cfg.MeasurePadding + (float64(beat.Index)+0.5)*slot
				for ni, note := range beat.Notes {
					nl := NoteLayout{
						Track: ti, Measure: mi, Beat: beat.Index, Note: ni,
						X: x, Beam: -1,
						Pitch:     note.Pitch,
						Rest:      note.IsRest(),
						StartTime: start,
						Duration:  note.BeatLength(sc.Meta.BeatUnit) * secPerBeat,
					}
					if nl.Rest {
						// Rests hang off the middle line, no stem, no ledgers.
						nl.StaffPosition = 4
						nl.Y = lineY + staffBottom - 4*cfg.LineSpacing/2
					} else {
						pos := StaffPosition(note.Pitch, tr.Clef)
						nl.StaffPosition = pos
						nl.Ledger = LedgerLines(pos)
						nl.Y = lineY + staffBottom - float64(pos)*cfg.LineSpacing/2
						nl.StemUp = StemUp(pos)
						nl.HasStem = note.Duration != score.Whole
						if nl.StemUp {
							nl.StemX = x + cfg.NoteHeadRadius
							nl.StemTipY = nl.Y - cfg.StemLength
						} else {
							nl.StemX = x - cfg.NoteHeadRadius
							nl.StemTipY = nl.Y + cfg.StemLength
						}
					}
					res.Notes = append(res.Notes, nl)
				}
			}
		}
	}
}

// buildBeams groups runs of consecutive beamed beats within one measure and
// track into slanted beam groups, then pulls each member's stem tip onto
// the beam line by linear interpolation.
func buildBeams(res *Result, sc *score.Score, cfg Config) {
	// Index of the first (primary) note layout per track/measure/beat.
	type key = struct{ t, m, b int }
	primary := make(map[key]int, len(res.Notes))
	members := make(map[key][]int, len(res.Notes))
	for i, n := range res.Notes {
		k := key{n.Track, n.Measure, n.Beat}
		if _, ok := primary[k]; !ok {
			primary[k] = i
		}
		members[k] = append(members[k], i)
	}

	for ti, tr := range sc.Tracks {
		for mi, m := range tr.Measures {
			beats := sortedBeats(m)
			run := make([]score.Beat, 0, len(beats))
			flush := func() {
				if len(run) >= 2 {
					emitBeam(res, cfg, ti, mi, run, primary, members)
				}
				run = run[:0]
			}
			for _, b := range beats {
				if len(b.Notes) == 0 || b.Notes[0].IsRest() || b.Notes[0].Duration.Beams() == 0 {
					flush()
					continue
				}
				if len(run) > 0 {
					prev := run[len(run)-1]
					if b.Index != prev.Index+1 || b.Notes[0].Duration != prev.Notes[0].Duration {
						flush()
					}
				}
				run = append(run, b)
			}
			flush()
		}
	}
}

func emitBeam(res *Result, cfg Config, track, measure int, run []score.Beat, primary map[struct{ t, m, b int }]int, members map[struct{ t, m, b int }][]int) {
	type key = struct{ t, m, b int }
	firstIdx := primary[key{track, measure, run[0].Index}]
	lastIdx := primary[key{track, measure, run[len(run)-1].Index}]
	first := res.Notes[firstIdx]
	last := res.Notes[lastIdx]

	// The whole group takes the first member's stem direction so the beam
	// is a single straight line.
	up := first.StemUp
	tip := func(n NoteLayout) (float64, float64) {
		sx := n.X - cfg.NoteHeadRadius
		ty := n.Y + cfg.StemLength
		if up {
			sx = n.X + cfg.NoteHeadRadius
			ty = n.Y - cfg.StemLength
		}
		return sx, ty
	}
	x0, y0 := tip(first)
	x1, y1 := tip(last)

	group := BeamGroup{
		Start: geom.Point{X: x0, Y: y0},
		End:   geom.Point{X: x1, Y: y1},
		Beams: run[0].Notes[0].Duration.Beams(),
	}
	beamIdx := len(res.Beams)
	for _, b := range run {
		for _, i := range members[key{track, measure, b.Index}] {
			n := &res.Notes[i]
			n.Beam = beamIdx
			n.StemUp = up
			sx, _ := tip(*n)
			n.StemX = sx
			// Stem ends on the beam line, not at a fixed length.
			t := 0.0
			if x1 != x0 {
				t = (sx - x0) / (x1 - x0)
			}
			n.StemTipY = geom.Lerp(y0, y1, t)
			group.Notes = append(group.Notes, i)
		}
	}
	res.Beams = append(res.Beams, group)
}

// buildTies pairs each tie-start note with the next note of the same pitch
// and track that ends a tie, and lays a cubic curve between the heads.
func buildTies(res *Result, sc *score.Score, cfg Config) {
	open := make(map[[2]int]int) // {track, pitch} -> note layout index
	for i, n := range res.Notes {
		if n.Rest {
			continue
		}
		src := noteAt(sc, n)
		k := [2]int{n.Track, n.Pitch}
		if src.TieEnd {
			if j, ok := open[k]; ok {
				res.Ties = append(res.Ties, makeTie(res, cfg, j, i))
				delete(open, k)
			}
		}
		if src.TieStart {
			open[k] = i
		}
	}
}

func noteAt(sc *score.Score, n NoteLayout) score.Note {
	for _, b := range sc.Tracks[n.Track].Measures[n.Measure].Beats {
		if b.Index == n.Beat {
			return b.Notes[n.Note]
		}
	}
	return score.Note{}
}

func makeTie(res *Result, cfg Config, from, to int) Tie {
	a := res.Notes[from]
	b := res.Notes[to]
	x0 := a.X + cfg.NoteHeadRadius
	x1 := b.X - cfg.NoteHeadRadius
	// Arc away from the stems.
	dir := 1.0
	if !a.StemUp {
		dir = -1
	}
	bulge := geom.Clamp((x1-x0)*0.2, 6, 18) * dir
	return Tie{
		From: from, To: to,
		P0: geom.Point{X: x0, Y: a.Y},
		P1: geom.Point{X: geom.Lerp(x0, x1, 1.0/3), Y: a.Y + bulge},
		P2: geom.Point{X: geom.Lerp(x0, x1, 2.0/3), Y: b.Y + bulge},
		P3: geom.Point{X: x1, Y: b.Y},
	}
}
