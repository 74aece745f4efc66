// Package partita renders musical scores into concrete geometry and plays
// them back with a time-accurate highlight cursor. The Player facade wires
// the pure layout engine to the playback scheduler and drives the scheduler
// from a periodic ticker; renderers read the current layout and highlight
// set synchronously before drawing.
package partita

import (
	"errors"
	"sync"
	"time"

	"github.com/kholin/partita/internal/history"
	"github.com/kholin/partita/internal/layout"
	"github.com/kholin/partita/internal/playback"
	"github.com/kholin/partita/internal/score"
	"github.com/kholin/partita/internal/scoreio"
)

// PlaybackEvent carries playback lifecycle and metronome events from Watch().
type PlaybackEvent struct {
	Kind    int // EventPlaybackEnded, EventLoopCompleted or EventBeat
	Measure int
	Strong  bool
}

const (
	EventPlaybackEnded int = iota
	EventLoopCompleted
	EventBeat
)

// NoteSink receives note on/off commands during playback; see the playback
// package. Implementations: internal/synth (tone generation) and
// internal/midisink (MIDI out).
type NoteSink = playback.Sink

// BeatTicker is an optional NoteSink extension for audible metronome ticks.
type BeatTicker interface {
	Tick(strong bool)
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	layout       layout.Config
	tickInterval time.Duration
	loop         bool
	metronome    bool
	releaseEarly float64
	sink         NoteSink
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		layout:       layout.DefaultConfig(),
		tickInterval: 30 * time.Millisecond,
	}
}

func WithLayoutConfig(cfg layout.Config) PlayerOption {
	return func(c *playerConfig) { c.layout = cfg }
}

// WithTickInterval sets the playback timer granularity (clamped to 16-50ms).
func WithTickInterval(d time.Duration) PlayerOption {
	return func(c *playerConfig) {
		if d < 16*time.Millisecond {
			d = 16 * time.Millisecond
		} else if d > 50*time.Millisecond {
			d = 50 * time.Millisecond
		}
		c.tickInterval = d
	}
}

func WithLoop(enabled bool) PlayerOption {
	return func(c *playerConfig) { c.loop = enabled }
}

func WithMetronome(enabled bool) PlayerOption {
	return func(c *playerConfig) { c.metronome = enabled }
}

// WithReleaseEarly overrides the highlight early-release tolerance.
func WithReleaseEarly(seconds float64) PlayerOption {
	return func(c *playerConfig) { c.releaseEarly = seconds }
}

func WithNoteSink(sink NoteSink) PlayerOption {
	return func(c *playerConfig) { c.sink = sink }
}

// Player owns one score, its current layout and the playback scheduler.
// All mutations go through the Player's mutex; the scheduler itself is
// single-writer as required by its contract.
type Player struct {
	mu    sync.Mutex
	cfg   playerConfig
	sc    *score.Score
	width float64
	res   *layout.Result
	sched *playback.Scheduler
	hist  *history.Stack

	stopTicker chan struct{}

	eventMu sync.Mutex
	eventCh chan PlaybackEvent
}

func NewPlayer(opts ...PlayerOption) *Player {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Player{cfg: cfg, hist: history.New()}
	p.sched = playback.NewWithOptions(layout.Calculate(&score.Score{}, cfg.layout, 0), playback.Options{
		Loop:         cfg.loop,
		Metronome:    cfg.metronome,
		ReleaseEarly: cfg.releaseEarly,
		Sink:         cfg.sink,
		OnEvent:      p.onSchedulerEvent,
		OnBeat:       p.onBeat,
	})
	return p
}

// LoadScoreFile reads a JSON score file and makes it current.
func (p *Player) LoadScoreFile(path string) error {
	sc, err := scoreio.LoadFile(path)
	if err != nil {
		return err
	}
	return p.SetScore(sc)
}

// SetScore replaces the current score, records it in the edit history and
// recomputes the layout. Playback position resets to the start.
func (p *Player) SetScore(sc *score.Score) error {
	if sc == nil {
		return errors.New("nil score")
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hist.Push(sc)
	p.sc = sc
	p.relayoutLocked()
	p.sched.SeekTo(0)
	return nil
}

// Resize recomputes the layout for a new available width. The scheduler is
// re-primed in the same critical section, so callers never observe a
// half-swapped layout, and playback position and play state survive.
func (p *Player) Resize(width float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
	p.relayoutLocked()
}

func (p *Player) relayoutLocked() {
	sc := p.sc
	if sc == nil {
		sc = &score.Score{}
	}
	p.res = layout.Calculate(sc, p.cfg.layout, p.width)
	p.sched.Reload(p.res)
}

// Layout returns the current layout result; nil before the first SetScore.
// The result is immutable and safe to read from any goroutine.
func (p *Player) Layout() *layout.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.res
}

func (p *Player) Score() *score.Score {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sc
}

// Play starts the periodic time source driving the scheduler.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.Play()
	if !p.sched.IsPlaying() || p.stopTicker != nil {
		return
	}
	stop := make(chan struct{})
	p.stopTicker = stop
	go p.runTicker(stop)
}

func (p *Player) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(p.cfg.tickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			p.mu.Lock()
			p.sched.Advance(dt)
			if !p.sched.IsPlaying() {
				// Non-loop playback ran off the end; the ticker dies with it.
				p.stopTicker = nil
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		}
	}
}

// Pause stops the time source, holding the current position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
}

func (p *Player) pauseLocked() {
	p.sched.Pause()
	if p.stopTicker != nil {
		close(p.stopTicker)
		p.stopTicker = nil
	}
}

func (p *Player) Toggle() {
	p.mu.Lock()
	playing := p.sched.IsPlaying()
	p.mu.Unlock()
	if playing {
		p.Pause()
	} else {
		p.Play()
	}
}

// Stop pauses and rewinds to the beginning.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
	p.sched.SeekTo(0)
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.IsPlaying()
}

func (p *Player) SeekTo(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SeekTo(seconds)
}

func (p *Player) SeekToMeasure(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SeekToMeasure(index)
}

func (p *Player) SetSpeedMultiplier(x float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.SetSpeedMultiplier(x)
}

func (p *Player) SetTempoOverride(bpm float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.SetTempoOverride(bpm)
}

func (p *Player) SetLoop(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SetLoop(on)
}

func (p *Player) SetMetronome(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SetMetronome(on)
}

func (p *Player) SetHandVolume(hand score.Hand, volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.SetHandVolume(hand, volume)
}

// Highlighted returns the note layout indices to highlight right now.
func (p *Player) Highlighted() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.Highlighted()
}

func (p *Player) MusicTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.MusicTime()
}

func (p *Player) TotalDuration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.TotalDuration()
}

func (p *Player) CurrentMeasure() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.CurrentMeasure()
}

// Undo swaps back to the previous score snapshot, if any.
func (p *Player) Undo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sc := p.hist.Undo()
	if sc == nil {
		return false
	}
	p.sc = sc
	p.relayoutLocked()
	return true
}

// Redo swaps forward to an undone score snapshot, if any.
func (p *Player) Redo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sc := p.hist.Redo()
	if sc == nil {
		return false
	}
	p.sc = sc
	p.relayoutLocked()
	return true
}

// Watch returns a channel carrying playback events. The channel is
// buffered; slow receivers drop events rather than stalling the ticker.
// Only the most recent Watch channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 16)
	p.eventMu.Lock()
	p.eventCh = ch
	p.eventMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventMu.Lock()
	ch := p.eventCh
	p.eventMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (p *Player) onSchedulerEvent(kind playback.EventKind) {
	switch kind {
	case playback.EventPlaybackEnded:
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	case playback.EventLoopCompleted:
		p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
	}
}

func (p *Player) onBeat(measure int, strong bool) {
	if bt, ok := p.cfg.sink.(BeatTicker); ok {
		bt.Tick(strong)
	}
	p.sendEvent(PlaybackEvent{Kind: EventBeat, Measure: measure, Strong: strong})
}

// Close stops playback. The Player is not reusable afterwards.
func (p *Player) Close() {
	p.Pause()
}
