package main

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestFanAngleDoublesSeam(t *testing.T) {
	const n = 22
	aim := 37.5
	first := FanAngle(aim, 0, n)
	last := FanAngle(aim, n-1, n)
	if first != aim {
		t.Errorf("element 0 should point at the aim, got %f", first)
	}
	if !approx(last-first, 360, 1e-9) {
		t.Errorf("last element should be a full turn from the first, got %f", last-first)
	}

	step := 360.0 / (n - 1)
	for j := 1; j < n; j++ {
		d := FanAngle(aim, j, n) - FanAngle(aim, j-1, n)
		if !approx(d, step, 1e-9) {
			t.Fatalf("step %d = %f, want %f", j, d, step)
		}
	}
}

func TestFanAngleDegenerate(t *testing.T) {
	if got := FanAngle(10, 0, 1); got != 10 {
		t.Errorf("single-element fan should return the aim, got %f", got)
	}
	if got := FanAngle(10, 0, 0); got != 10 {
		t.Errorf("empty fan should return the aim, got %f", got)
	}
}

func TestRingStep(t *testing.T) {
	if got := RingStep(8); got != 45 {
		t.Errorf("RingStep(8) = %f, want 45", got)
	}
}

func TestAngleTo(t *testing.T) {
	tests := []struct {
		x2, y2, want float64
	}{
		{1, 0, 0},
		{0, 1, 90},
		{-1, 0, 180},
		{0, -1, -90},
	}
	for _, tt := range tests {
		got := AngleTo(0, 0, tt.x2, tt.y2)
		if !approx(got, tt.want, 1e-9) {
			t.Errorf("AngleTo(0,0,%v,%v) = %f, want %f", tt.x2, tt.y2, got, tt.want)
		}
	}
}

func TestPolar(t *testing.T) {
	p := Polar(100, 100, 50, 90)
	if !approx(p.X, 100, 1e-9) || !approx(p.Y, 150, 1e-9) {
		t.Errorf("Polar(100,100,50,90) = %v, want (100,150)", p)
	}
}

func TestHeadingZeroLength(t *testing.T) {
	dir, length := Heading(r2.Vec{X: 5, Y: 5}, r2.Vec{X: 5, Y: 5})
	if dir.X != 0 || dir.Y != 0 {
		t.Errorf("zero-length heading should have zero direction, got %v", dir)
	}
	if length != 1 {
		t.Errorf("zero-length heading should report length 1, got %f", length)
	}

	dir, length = Heading(r2.Vec{}, r2.Vec{X: 3, Y: 4})
	if length != 5 || !approx(r2.Norm(dir), 1, 1e-12) {
		t.Errorf("expected unit direction with length 5, got %v / %f", dir, length)
	}
}

func TestMustFinitePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for NaN")
		}
	}()
	mustFinite("test", 1, math.NaN())
}
