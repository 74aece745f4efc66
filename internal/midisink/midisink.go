// Package midisink routes scheduler note commands to a MIDI out port. The
// binary that uses it must register a driver (blank-import rtmididrv).
package midisink

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Sink implements the playback Sink contract over a MIDI out port.
type Sink struct {
	send    func(midi.Message) error
	channel uint8
}

// Open connects to the named out port, or the first available port when
// name is empty.
func Open(name string) (*Sink, error) {
	out, err := findPort(name)
	if err != nil {
		return nil, err
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midi out %q: %w", out.String(), err)
	}
	return &Sink{send: send}, nil
}

func findPort(name string) (drivers.Out, error) {
	if name == "" {
		out, err := midi.OutPort(0)
		if err != nil {
			return nil, fmt.Errorf("no MIDI out ports available: %w", err)
		}
		return out, nil
	}
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("MIDI out port %q not found: %w", name, err)
	}
	return out, nil
}

func (s *Sink) NoteOn(pitch int, velocity int) {
	if pitch < 0 || pitch > 127 {
		return
	}
	if velocity < 0 {
		velocity = 0
	} else if velocity > 127 {
		velocity = 127
	}
	_ = s.send(midi.NoteOn(s.channel, uint8(pitch), uint8(velocity)))
}

func (s *Sink) NoteOff(pitch int) {
	if pitch < 0 || pitch > 127 {
		return
	}
	_ = s.send(midi.NoteOff(s.channel, uint8(pitch)))
}

// Close silences anything still sounding and shuts the driver down.
func (s *Sink) Close() {
	for p := 0; p < 128; p++ {
		_ = s.send(midi.NoteOff(s.channel, uint8(p)))
	}
	midi.CloseDriver()
}
