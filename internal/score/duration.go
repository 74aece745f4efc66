package score

import "fmt"

// Duration is a note duration class, whole down to thirty-second.
type Duration int

const (
	Whole Duration = iota
	Half
	Quarter
	Eighth
	Sixteenth
	ThirtySecond
)

var durationNames = [...]string{"whole", "half", "quarter", "eighth", "sixteenth", "thirtysecond"}

func (d Duration) String() string {
	if d < Whole || d > ThirtySecond {
		return fmt.Sprintf("duration(%d)", int(d))
	}
	return durationNames[d]
}

// Fraction returns the duration as a fraction of a whole note.
func (d Duration) Fraction() float64 {
	switch d {
	case Whole:
		return 1
	case Half:
		return 1.0 / 2
	case Quarter:
		return 1.0 / 4
	case Eighth:
		return 1.0 / 8
	case Sixteenth:
		return 1.0 / 16
	case ThirtySecond:
		return 1.0 / 32
	default:
		return 1.0 / 4
	}
}

// Beams returns the number of beams (staff notation) or underlines
// (numbered notation) the duration carries.
func (d Duration) Beams() int {
	switch d {
	case Eighth:
		return 1
	case Sixteenth:
		return 2
	case ThirtySecond:
		return 3
	default:
		return 0
	}
}

func ParseDuration(s string) (Duration, error) {
	for i, name := range durationNames {
		if s == name {
			return Duration(i), nil
		}
	}
	// Common aliases used by score files.
	switch s {
	case "32nd", "thirty-second":
		return ThirtySecond, nil
	case "16th":
		return Sixteenth, nil
	case "8th":
		return Eighth, nil
	}
	return Quarter, fmt.Errorf("unknown duration %q", s)
}

// dotFactor is the length multiplier for dotted durations:
// one dot adds a half, two dots add three quarters.
func dotFactor(dots int) float64 {
	f := 1.0
	add := 0.5
	for i := 0; i < dots; i++ {
		f += add
		add /= 2
	}
	return f
}
