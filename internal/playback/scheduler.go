// Package playback maps a continuously advancing wall-clock time onto
// musical position: which notes sound now, which should be highlighted,
// where the metronome is. The scheduler is single-writer; the owner drives
// it from one goroutine (typically a ticker loop) and guards access itself.
package playback

import (
	"fmt"
	"math"
	"sort"

	"github.com/kholin/partita/internal/layout"
	"github.com/kholin/partita/internal/score"
)

type EventKind int

const (
	EventPlaybackEnded EventKind = iota
	EventLoopCompleted
)

// Sink receives note on/off commands for an external audio service. The
// scheduler decides what and when; it never synthesizes sound.
type Sink interface {
	NoteOn(pitch int, velocity int)
	NoteOff(pitch int)
}

type Options struct {
	Loop         bool
	Metronome    bool
	ReleaseEarly float64 // highlight/note-off tolerance in seconds (0 = 50ms default)
	OnEvent      func(EventKind)
	OnBeat       func(measure int, strong bool)
	Sink         Sink
}

const (
	MinTempoBPM = 40
	MaxTempoBPM = 200

	defaultReleaseEarly = 0.05
)

// SpeedMultipliers is the discrete set of allowed playback speeds.
var SpeedMultipliers = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

type noteEvent struct {
	start, end float64 // music time, seconds at the score tempo
	note       int     // index into layout.Result.Notes
	pitch      int
	rest       bool
	hand       score.Hand
}

type Scheduler struct {
	res    *layout.Result
	events []noteEvent // sorted by start time
	total  float64     // nominal duration, music seconds
	bpm    float64     // score tempo

	tempoOverride float64 // 0 = follow the score tempo
	speed         float64
	loop          bool
	metronome     bool
	leftVolume    int
	rightVolume   int

	playing      bool
	music        float64 // current music time
	cursor       int     // next event to start
	beatCursor   int
	active       []int // event indices sounding right now
	releaseEarly float64

	onEvent func(EventKind)
	onBeat  func(int, bool)
	sink    Sink
}

func New(res *layout.Result) *Scheduler {
	return NewWithOptions(res, Options{})
}

func NewWithOptions(res *layout.Result, opts Options) *Scheduler {
	re := opts.ReleaseEarly
	if re <= 0 {
		re = defaultReleaseEarly
	}
	s := &Scheduler{
		speed:        1.0,
		loop:         opts.Loop,
		metronome:    opts.Metronome,
		leftVolume:   100,
		rightVolume:  100,
		releaseEarly: re,
		onEvent:      opts.OnEvent,
		onBeat:       opts.OnBeat,
		sink:         opts.Sink,
	}
	s.Reload(res)
	return s
}

// Reload re-primes the schedule from a fresh layout pass. Music time and
// play state survive, so a window resize never interrupts playback; active
// notes are rebuilt silently rather than re-attacked.
func (s *Scheduler) Reload(res *layout.Result) {
	s.res = res
	s.events = s.events[:0]
	s.total = 0
	s.bpm = 0
	if res != nil {
		s.total = res.TotalDuration
		s.bpm = res.BPM
		for i, n := range res.Notes {
			hand := score.HandNone
			if n.Track < len(res.Tracks) {
				hand = res.Tracks[n.Track].Hand
			}
			s.events = append(s.events, noteEvent{
				start: n.StartTime,
				end:   n.StartTime + n.Duration,
				note:  i,
				pitch: n.Pitch,
				rest:  n.Rest,
				hand:  hand,
			})
		}
		sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].start < s.events[j].start })
	}
	if s.total == 0 {
		s.music = 0
		s.playing = false
	}
	s.music = clamp(s.music, 0, s.total)
	s.reposition()
}

// rate is the music-seconds-per-wall-second conversion under the current
// speed multiplier and tempo override.
func (s *Scheduler) rate() float64 {
	r := s.speed
	if s.tempoOverride > 0 && s.bpm > 0 {
		r *= s.tempoOverride / s.bpm
	}
	return r
}

// Advance moves playback forward by dt wall-clock seconds. Called from the
// owner's periodic timer.
func (s *Scheduler) Advance(dt float64) {
	if !s.playing || s.total <= 0 || dt <= 0 {
		return
	}
	s.music += dt * s.rate()
	if s.music >= s.total {
		if s.loop {
			s.releaseAll()
			s.music = math.Mod(s.music, s.total)
			s.cursor = 0
			s.beatCursor = 0
			if s.onEvent != nil {
				s.onEvent(EventLoopCompleted)
			}
		} else {
			s.music = s.total
			s.playing = false
			s.releaseAll()
			if s.onEvent != nil {
				s.onEvent(EventPlaybackEnded)
			}
			return
		}
	}
	s.sweep()
}

// sweep starts events whose onset has passed and releases ones past their
// early-release point. Incremental: each event is visited once per pass.
func (s *Scheduler) sweep() {
	// Releases first so a retriggered pitch gets its off before the next on.
	kept := s.active[:0]
	for _, i := range s.active {
		ev := s.events[i]
		if s.eventSounding(ev) {
			kept = append(kept, i)
			continue
		}
		if s.sink != nil && !ev.rest {
			s.sink.NoteOff(ev.pitch)
		}
	}
	s.active = kept

	for s.cursor < len(s.events) && s.events[s.cursor].start <= s.music {
		ev := s.events[s.cursor]
		if s.eventSounding(ev) {
			s.active = append(s.active, s.cursor)
			if s.sink != nil && !ev.rest {
				s.sink.NoteOn(ev.pitch, s.velocityFor(ev.hand))
			}
		}
		s.cursor++
	}

	for s.beatCursor < len(s.res.BeatTimes) && s.res.BeatTimes[s.beatCursor].Time <= s.music {
		bt := s.res.BeatTimes[s.beatCursor]
		s.beatCursor++
		if s.metronome && s.onBeat != nil {
			s.onBeat(bt.Measure, bt.Strong)
		}
	}
}

// eventSounding reports whether the event interval, shortened by the
// early-release tolerance, contains the current music time. The tolerance
// keeps adjacent repeated pitches visually and audibly separate.
func (s *Scheduler) eventSounding(ev noteEvent) bool {
	end := ev.end - s.releaseEarly
	if end <= ev.start {
		end = ev.start + (ev.end-ev.start)/2
	}
	return ev.start <= s.music && s.music < end
}

func (s *Scheduler) releaseAll() {
	if s.sink != nil {
		for _, i := range s.active {
			if !s.events[i].rest {
				s.sink.NoteOff(s.events[i].pitch)
			}
		}
	}
	s.active = s.active[:0]
}

// reposition rebuilds the cursors and active set for the current music
// time without emitting note on/off, used after seeks and reloads.
func (s *Scheduler) reposition() {
	s.active = s.active[:0]
	s.cursor = sort.Search(len(s.events), func(i int) bool { return s.events[i].start > s.music })
	for i := 0; i < s.cursor; i++ {
		if s.eventSounding(s.events[i]) {
			s.active = append(s.active, i)
		}
	}
	if s.res != nil {
		// >= so the beat landing exactly on the seek point still fires.
		s.beatCursor = sort.Search(len(s.res.BeatTimes), func(i int) bool { return s.res.BeatTimes[i].Time >= s.music })
	} else {
		s.beatCursor = 0
	}
}

// SeekTo jumps to t music seconds, clamped to [0, total]. The highlighted
// set and current measure are recomputed synchronously.
func (s *Scheduler) SeekTo(t float64) {
	if s.total <= 0 {
		return
	}
	s.releaseAll()
	s.music = clamp(t, 0, s.total)
	s.reposition()
}

// SeekToMeasure jumps to the first beat of the given measure, clamped to
// the score bounds.
func (s *Scheduler) SeekToMeasure(index int) {
	if s.res == nil || s.res.TotalDuration <= 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	s.SeekTo(s.res.MeasureStart(index))
}

func (s *Scheduler) Play() {
	if s.total <= 0 {
		return
	}
	if s.music >= s.total {
		s.SeekTo(0)
	}
	s.playing = true
}

func (s *Scheduler) Pause() {
	s.playing = false
	s.releaseAll()
}

func (s *Scheduler) Toggle() {
	if s.playing {
		s.Pause()
	} else {
		s.Play()
	}
}

func (s *Scheduler) IsPlaying() bool { return s.playing }

// MusicTime is the current position in music seconds at the score tempo.
func (s *Scheduler) MusicTime() float64 { return s.music }

// SetTempoOverride replaces the score tempo for playback pacing. Note start
// times baked into the layout are untouched; only the wall-to-music rate
// changes, so elapsed music time is preserved. Zero clears the override.
func (s *Scheduler) SetTempoOverride(bpm float64) error {
	if bpm == 0 {
		s.tempoOverride = 0
		return nil
	}
	if bpm < MinTempoBPM || bpm > MaxTempoBPM {
		return fmt.Errorf("tempo %.0f out of range [%d, %d]", bpm, MinTempoBPM, MaxTempoBPM)
	}
	s.tempoOverride = bpm
	return nil
}

func (s *Scheduler) TempoOverride() float64 { return s.tempoOverride }

// SetSpeedMultiplier selects one of the allowed discrete speeds. Values
// outside the set are rejected and the prior speed retained.
func (s *Scheduler) SetSpeedMultiplier(x float64) error {
	for _, v := range SpeedMultipliers {
		if math.Abs(v-x) < 1e-9 {
			s.speed = v
			return nil
		}
	}
	return fmt.Errorf("speed %.2f not in allowed set %v", x, SpeedMultipliers)
}

func (s *Scheduler) SpeedMultiplier() float64 { return s.speed }

func (s *Scheduler) SetLoop(on bool)      { s.loop = on }
func (s *Scheduler) Loop() bool           { return s.loop }
func (s *Scheduler) SetMetronome(on bool) { s.metronome = on }
func (s *Scheduler) Metronome() bool      { return s.metronome }

// SetHandVolume sets the gain for one hand, clamped to 0..100.
func (s *Scheduler) SetHandVolume(hand score.Hand, volume int) {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	switch hand {
	case score.HandLeft:
		s.leftVolume = volume
	case score.HandRight:
		s.rightVolume = volume
	default:
		s.leftVolume = volume
		s.rightVolume = volume
	}
}

func (s *Scheduler) HandVolume(hand score.Hand) int {
	if hand == score.HandLeft {
		return s.leftVolume
	}
	return s.rightVolume
}

// velocityFor maps a hand's volume to a MIDI-style velocity.
func (s *Scheduler) velocityFor(hand score.Hand) int {
	vol := 0
	switch hand {
	case score.HandLeft:
		vol = s.leftVolume
	case score.HandRight:
		vol = s.rightVolume
	default:
		vol = (s.leftVolume + s.rightVolume) / 2
	}
	return vol * 127 / 100
}

// TotalDuration is the wall-clock length of the score under the current
// speed and tempo override, for sizing progress indicators.
func (s *Scheduler) TotalDuration() float64 {
	if s.total <= 0 {
		return 0
	}
	r := s.rate()
	if r <= 0 {
		return 0
	}
	return s.total / r
}

// NominalDuration is the score length in music seconds.
func (s *Scheduler) NominalDuration() float64 { return s.total }

// Highlighted returns the note layout indices sounding at the current
// music time, chords highlighting together. The slice is sorted and fresh
// on every call.
func (s *Scheduler) Highlighted() []int {
	out := make([]int, 0, len(s.active))
	for _, i := range s.active {
		out = append(out, s.events[i].note)
	}
	sort.Ints(out)
	return out
}

// CurrentMeasure is the measure index containing the current music time.
func (s *Scheduler) CurrentMeasure() int {
	if s.res == nil || len(s.res.BeatTimes) == 0 {
		return 0
	}
	i := sort.Search(len(s.res.BeatTimes), func(i int) bool { return s.res.BeatTimes[i].Time > s.music })
	if i == 0 {
		return s.res.BeatTimes[0].Measure
	}
	return s.res.BeatTimes[i-1].Measure
}

// Resolve maps a highlighted note index back to pitch, duration and hand
// for an external audio sink.
func (s *Scheduler) Resolve(noteIndex int) (pitch int, duration float64, hand score.Hand, ok bool) {
	if s.res == nil || noteIndex < 0 || noteIndex >= len(s.res.Notes) {
		return 0, 0, score.HandNone, false
	}
	n := s.res.Notes[noteIndex]
	if n.Track < len(s.res.Tracks) {
		hand = s.res.Tracks[n.Track].Hand
	}
	return n.Pitch, n.Duration, hand, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
