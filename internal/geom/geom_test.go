package geom

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 30, H: 40}
	if !r.Contains(Point{10, 20}) {
		t.Error("top-left corner excluded")
	}
	if r.Contains(Point{40, 60}) {
		t.Error("bottom-right corner included (bounds are half-open)")
	}
	if !r.Contains(Point{25, 40}) {
		t.Error("interior point excluded")
	}
	if r.Contains(Point{9.9, 40}) {
		t.Error("point left of the rect included")
	}
}

func TestRectCenter(t *testing.T) {
	c := Rect{X: 0, Y: 0, W: 10, H: 20}.Center()
	if !approx(c.X, 5) || !approx(c.Y, 10) {
		t.Fatalf("center = %+v, want (5, 10)", c)
	}
}

func TestDist(t *testing.T) {
	if d := Dist(Point{0, 0}, Point{3, 4}); !approx(d, 5) {
		t.Fatalf("dist = %v, want 5", d)
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(2, 10, 0.25); !approx(got, 4) {
		t.Fatalf("Lerp(2, 10, 0.25) = %v, want 4", got)
	}
	if got := Lerp(5, -5, 1); !approx(got, -5) {
		t.Fatalf("Lerp(5, -5, 1) = %v, want -5", got)
	}
}

func TestCubicAtEndpoints(t *testing.T) {
	p0 := Point{0, 0}
	p1 := Point{10, 20}
	p2 := Point{30, 20}
	p3 := Point{40, 0}

	if got := CubicAt(p0, p1, p2, p3, 0); got != p0 {
		t.Fatalf("t=0 gives %+v, want %+v", got, p0)
	}
	if got := CubicAt(p0, p1, p2, p3, 1); got != p3 {
		t.Fatalf("t=1 gives %+v, want %+v", got, p3)
	}
	mid := CubicAt(p0, p1, p2, p3, 0.5)
	if !approx(mid.X, 20) || !approx(mid.Y, 15) {
		t.Fatalf("t=0.5 gives %+v, want (20, 15)", mid)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-1, 0, 10) != 0 || Clamp(11, 0, 10) != 10 || Clamp(5, 0, 10) != 5 {
		t.Error("Clamp misbehaves")
	}
	if ClampInt(-1, 0, 127) != 0 || ClampInt(200, 0, 127) != 127 || ClampInt(64, 0, 127) != 64 {
		t.Error("ClampInt misbehaves")
	}
}

func TestFreq(t *testing.T) {
	if f := Freq(69); !approx(f, 440) {
		t.Fatalf("Freq(A4) = %v, want 440", f)
	}
	if f := Freq(81); !approx(f, 880) {
		t.Fatalf("Freq(A5) = %v, want 880", f)
	}
	if f := Freq(60); math.Abs(f-261.625565) > 1e-3 {
		t.Fatalf("Freq(C4) = %v, want ~261.63", f)
	}
}
