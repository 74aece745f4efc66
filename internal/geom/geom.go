// Package geom has the small geometry and pitch-math helpers shared by the
// layout engine and the renderers.
package geom

import "math"

type Point struct {
	X, Y float64
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

func (r Rect) Center() Point {
	return Point{r.X + r.W/2, r.Y + r.H/2}
}

func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Lerp interpolates a -> b by t in [0,1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// CubicAt evaluates a cubic Bézier with control points p0..p3 at t.
func CubicAt(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Point{
		X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
		Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
	}
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Freq converts a MIDI pitch to Hz (equal temperament, A4 = 440).
func Freq(pitch int) float64 {
	return 440.0 * math.Pow(2, float64(pitch-69)/12.0)
}
