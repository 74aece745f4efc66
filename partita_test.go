package partita

import (
	"sync"
	"testing"
	"time"

	"github.com/kholin/partita/internal/score"
)

func testScore() *score.Score {
	sc := &score.Score{
		Title: "test",
		Meta:  score.Metadata{BeatsPerMeasure: 4, BeatUnit: 4, Tempo: 120},
	}
	tr := score.Track{ID: "t", Name: "melody", Clef: score.ClefTreble, Hand: score.HandRight}
	for m := 0; m < 2; m++ {
		ms := score.Measure{Number: m + 1}
		for b := 0; b < 4; b++ {
			ms.Beats = append(ms.Beats, score.Beat{
				Index: b,
				Notes: []score.Note{{Pitch: 60 + b, Duration: score.Quarter}},
			})
		}
		tr.Measures = append(tr.Measures, ms)
	}
	sc.Tracks = []score.Track{tr}
	return sc
}

type recordingSink struct {
	mu   sync.Mutex
	ons  []int
	offs []int
}

func (r *recordingSink) NoteOn(pitch, velocity int) {
	r.mu.Lock()
	r.ons = append(r.ons, pitch)
	r.mu.Unlock()
}

func (r *recordingSink) NoteOff(pitch int) {
	r.mu.Lock()
	r.offs = append(r.offs, pitch)
	r.mu.Unlock()
}

func (r *recordingSink) onCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ons)
}

func TestSetScoreValidates(t *testing.T) {
	p := NewPlayer()
	defer p.Close()

	if err := p.SetScore(nil); err == nil {
		t.Error("nil score accepted")
	}
	bad := testScore()
	bad.Meta.BeatsPerMeasure = 0
	if err := p.SetScore(bad); err == nil {
		t.Error("invalid score accepted")
	}
	if err := p.SetScore(testScore()); err != nil {
		t.Fatalf("valid score rejected: %v", err)
	}
}

func TestResizeKeepsPositionAndGeometryChanges(t *testing.T) {
	p := NewPlayer()
	defer p.Close()
	if err := p.SetScore(testScore()); err != nil {
		t.Fatal(err)
	}

	p.Resize(800)
	wide := p.Layout()
	p.SeekTo(1.0)

	p.Resize(300)
	narrow := p.Layout()

	if wide == narrow {
		t.Fatal("resize did not produce a fresh layout")
	}
	if len(narrow.Lines) <= len(wide.Lines) {
		t.Fatalf("narrow layout has %d lines, wide has %d, want more when narrower", len(narrow.Lines), len(wide.Lines))
	}
	if got := p.MusicTime(); got != 1.0 {
		t.Fatalf("music time after resize = %v, want 1.0", got)
	}
}

func TestSeekAndHighlight(t *testing.T) {
	p := NewPlayer()
	defer p.Close()
	if err := p.SetScore(testScore()); err != nil {
		t.Fatal(err)
	}
	p.Resize(800)

	p.SeekTo(0.5)
	if got := p.Highlighted(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("highlighted = %v, want [1]", got)
	}
	p.SeekToMeasure(1)
	if got := p.CurrentMeasure(); got != 1 {
		t.Fatalf("current measure = %d, want 1", got)
	}
}

func TestPlayPauseWallClock(t *testing.T) {
	sink := &recordingSink{}
	p := NewPlayer(
		WithNoteSink(sink),
		WithTickInterval(16*time.Millisecond),
	)
	defer p.Close()
	if err := p.SetScore(testScore()); err != nil {
		t.Fatal(err)
	}
	p.Resize(800)

	p.Play()
	if !p.IsPlaying() {
		t.Fatal("not playing after Play")
	}
	time.Sleep(150 * time.Millisecond)
	p.Pause()

	if p.IsPlaying() {
		t.Fatal("still playing after Pause")
	}
	got := p.MusicTime()
	if got <= 0 {
		t.Fatalf("music time did not advance, still %v", got)
	}
	if sink.onCount() == 0 {
		t.Fatal("sink saw no note ons during playback")
	}
	// Position holds while paused.
	time.Sleep(50 * time.Millisecond)
	if p.MusicTime() != got {
		t.Fatalf("music time drifted while paused: %v -> %v", got, p.MusicTime())
	}
}

func TestSettingsPassThrough(t *testing.T) {
	p := NewPlayer()
	defer p.Close()
	if err := p.SetScore(testScore()); err != nil {
		t.Fatal(err)
	}
	p.Resize(800)

	if err := p.SetSpeedMultiplier(2.0); err != nil {
		t.Fatal(err)
	}
	if got := p.TotalDuration(); got != 2.0 {
		t.Fatalf("total duration at 2x = %v, want 2.0", got)
	}
	if err := p.SetSpeedMultiplier(3.0); err == nil {
		t.Error("invalid speed accepted")
	}
	if err := p.SetTempoOverride(500); err == nil {
		t.Error("invalid tempo accepted")
	}
	p.SetHandVolume(score.HandRight, 40)
	p.SetLoop(true)
	p.SetMetronome(true)
}

func TestUndoRedoSwapsScore(t *testing.T) {
	p := NewPlayer()
	defer p.Close()

	first := testScore()
	second := testScore()
	second.Title = "second"
	if err := p.SetScore(first); err != nil {
		t.Fatal(err)
	}
	if err := p.SetScore(second); err != nil {
		t.Fatal(err)
	}
	p.Resize(800)

	if !p.Undo() {
		t.Fatal("undo failed with history present")
	}
	if got := p.Score().Title; got != "test" {
		t.Fatalf("score after undo = %q, want first", got)
	}
	if !p.Redo() {
		t.Fatal("redo failed")
	}
	if got := p.Score().Title; got != "second" {
		t.Fatalf("score after redo = %q, want second", got)
	}
	if p.Redo() {
		t.Fatal("redo past the newest version")
	}
}

func TestLoadScoreFile(t *testing.T) {
	p := NewPlayer()
	defer p.Close()

	if err := p.LoadScoreFile("examples/ode_to_joy.json"); err != nil {
		t.Fatal(err)
	}
	p.Resize(1000)
	sc := p.Score()
	if !sc.IsGrandStaff() {
		t.Fatal("demo score not a grand staff")
	}
	if p.TotalDuration() != 8.0 {
		t.Fatalf("total duration = %v, want 8.0 (16 beats at 120 BPM)", p.TotalDuration())
	}

	if err := p.LoadScoreFile("examples/nope.json"); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestWatchDeliversBeats(t *testing.T) {
	p := NewPlayer(
		WithMetronome(true),
		WithTickInterval(16*time.Millisecond),
	)
	defer p.Close()
	if err := p.SetScore(testScore()); err != nil {
		t.Fatal(err)
	}
	p.Resize(800)

	events := p.Watch()
	p.Play()
	defer p.Pause()

	select {
	case ev := <-events:
		if ev.Kind != EventBeat {
			t.Fatalf("first event kind = %d, want EventBeat", ev.Kind)
		}
		if !ev.Strong {
			t.Fatalf("first beat not strong: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no beat event within 2s")
	}
}
