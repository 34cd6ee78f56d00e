package main

import "math"

// Position is a projectile's location in playfield pixels
type Position struct {
	X, Y float64
}

// Velocity is a projectile's motion in pixels per second
type Velocity struct {
	X, Y float64
}

// Shot holds the per-projectile metadata that does not affect motion.
type Shot struct {
	Sprite int     // classification only (color, damage rate)
	Size   float64 // draw radius
	Delay  float64 // seconds left before the renderer shows it; motion is never paused
}

// Beam is a fixed laser ray. The end point is derived from the start,
// angle and length and is refreshed every tick.
type Beam struct {
	SX, SY    float64
	Angle     float64 // radians
	Length    float64
	Thickness float64
	LifeMS    float64
	Hue       float64 // 0-360
	Alpha     float64 // percent
	EX, EY    float64
}

// End computes the beam's end point from its stored geometry
func (b *Beam) End() (float64, float64) {
	return b.SX + math.Cos(b.Angle)*b.Length, b.SY + math.Sin(b.Angle)*b.Length
}

// Playfield is the visible area plus the culling margin around it
type Playfield struct {
	Width  float64
	Height float64
	Margin float64
}

const (
	DefaultWidth      = 800.0
	DefaultHeight     = 600.0
	DefaultCullMargin = 80.0
)

// DefaultPlayfield is the 800x600 stage with an 80px culling margin
func DefaultPlayfield() Playfield {
	return Playfield{Width: DefaultWidth, Height: DefaultHeight, Margin: DefaultCullMargin}
}

// InCullBounds reports whether (x,y) lies in [-m, W+m] x [-m, H+m]
func (f Playfield) InCullBounds(x, y float64) bool {
	return x >= -f.Margin && x <= f.Width+f.Margin &&
		y >= -f.Margin && y <= f.Height+f.Margin
}

// Diagonal is the length of the stage diagonal, used to push laser ends off
// screen.
func (f Playfield) Diagonal() float64 {
	return math.Hypot(f.Width, f.Height)
}

// CenterX returns the horizontal center of the stage
func (f Playfield) CenterX() float64 { return f.Width / 2 }
