package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ShotSpeedScale converts a speed given in pixels per frame into pixels per
// second.
const ShotSpeedScale = TickRate

// FanAngle returns the angle in degrees of element j of an n-element fan
// around aim. The step is 360/(n-1), so elements 0 and n-1 land on the same
// absolute heading and the seam is doubled.
func FanAngle(aim float64, j, n int) float64 {
	if n < 2 {
		return aim
	}
	return aim + float64(j)*360/float64(n-1)
}

// RingStep is the per-ring orbit advance used by aimed ring bursts.
func RingStep(divisions int) float64 {
	return 360 / float64(divisions)
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// AngleTo returns the heading in degrees from (x1,y1) towards (x2,y2).
func AngleTo(x1, y1, x2, y2 float64) float64 {
	return radToDeg(math.Atan2(y2-y1, x2-x1))
}

// Polar returns the point at distance r from (x,y) along angleDeg.
func Polar(x, y, r, angleDeg float64) r2.Vec {
	rad := degToRad(angleDeg)
	return r2.Add(r2.Vec{X: x, Y: y}, r2.Scale(r, r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}))
}

// Heading returns the unit vector from `from` towards `to` and the distance
// between them. A zero-length vector is divided by 1 instead, which yields a
// zero direction and a reported length of 1.
func Heading(from, to r2.Vec) (r2.Vec, float64) {
	d := r2.Sub(to, from)
	length := r2.Norm(d)
	if length == 0 {
		length = 1
	}
	return r2.Scale(1/length, d), length
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// mustFinite panics when any value is NaN or infinite. Pattern inputs are
// generated internally, so a bad value is a programming error.
func mustFinite(what string, vs ...float64) {
	for _, v := range vs {
		if !finite(v) {
			panic(fmt.Sprintf("%s: non-finite value %v", what, v))
		}
	}
}
