// Package synth is a small additive synthesizer used by the demo binaries:
// a piano-like voice bank plus metronome clicks. The scheduler core never
// depends on it; it is one possible Sink implementation.
package synth

import (
	"math"
	"sync"

	"github.com/kholin/partita/internal/geom"
)

// Harmonic amplitudes for the piano-ish tone, fundamental first.
var harmonics = []float64{1.0, 0.55, 0.30, 0.16, 0.09}

const (
	attackSeconds  = 0.005
	decayTau       = 1.2  // seconds, exponential decay of a held note
	releaseTau     = 0.04 // seconds, fade after note-off
	clickTau       = 0.025
	strongClickHz  = 1100.0
	weakClickHz    = 740.0
	strongClickAmp = 0.5
	weakClickAmp   = 0.32
)

type voice struct {
	freq     float64
	phase    float64
	gain     float64
	age      int
	released bool
	relAge   int
}

type click struct {
	freq float64
	amp  float64
	age  int
}

// Piano mixes active voices into a stereo float32 stream. NoteOn/NoteOff
// arrive from the scheduler goroutine, Process from the audio thread; a
// mutex covers the voice table.
type Piano struct {
	mu         sync.Mutex
	sampleRate int
	voices     map[int]*voice
	clicks     []*click
	gain       float64
}

func NewPiano(sampleRate int) *Piano {
	return &Piano{
		sampleRate: sampleRate,
		voices:     make(map[int]*voice),
		gain:       0.22,
	}
}

func (p *Piano) NoteOn(pitch int, velocity int) {
	if velocity <= 0 {
		return
	}
	p.mu.Lock()
	p.voices[pitch] = &voice{
		freq: geom.Freq(pitch),
		gain: float64(geom.ClampInt(velocity, 1, 127)) / 127.0,
	}
	p.mu.Unlock()
}

func (p *Piano) NoteOff(pitch int) {
	p.mu.Lock()
	if v, ok := p.voices[pitch]; ok {
		v.released = true
	}
	p.mu.Unlock()
}

// Tick schedules a metronome click, strong for the first beat of a measure.
func (p *Piano) Tick(strong bool) {
	c := &click{freq: weakClickHz, amp: weakClickAmp}
	if strong {
		c.freq = strongClickHz
		c.amp = strongClickAmp
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, c)
	p.mu.Unlock()
}

// Silence drops every active voice immediately.
func (p *Piano) Silence() {
	p.mu.Lock()
	p.voices = make(map[int]*voice)
	p.clicks = p.clicks[:0]
	p.mu.Unlock()
}

// Process fills dst with interleaved stereo samples.
func (p *Piano) Process(dst []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sr := float64(p.sampleRate)
	attackSamples := attackSeconds * sr
	for f := 0; f+1 < len(dst); f += 2 {
		var sum float64
		for pitch, v := range p.voices {
			env := math.Exp(-float64(v.age) / (decayTau * sr))
			if a := float64(v.age) / attackSamples; a < 1 {
				env *= a
			}
			if v.released {
				env *= math.Exp(-float64(v.relAge) / (releaseTau * sr))
				v.relAge++
			}
			if env < 1e-4 {
				delete(p.voices, pitch)
				continue
			}
			var tone float64
			for h, amp := range harmonics {
				tone += amp * math.Sin(v.phase*float64(h+1))
			}
			sum += v.gain * env * tone
			v.phase += 2 * math.Pi * v.freq / sr
			if v.phase > 2*math.Pi*1e6 {
				v.phase = math.Mod(v.phase, 2*math.Pi)
			}
			v.age++
		}
		kept := p.clicks[:0]
		for _, c := range p.clicks {
			env := math.Exp(-float64(c.age) / (clickTau * sr))
			if env >= 1e-4 {
				sum += c.amp * env * math.Sin(2*math.Pi*c.freq*float64(c.age)/sr)
				c.age++
				kept = append(kept, c)
			}
		}
		p.clicks = kept

		s := float32(geom.Clamp(sum*p.gain, -1, 1))
		dst[f] = s
		dst[f+1] = s
	}
}
