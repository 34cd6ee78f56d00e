package main

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	BossSize       = 48.0
	BossStartY     = 60.0
	BossEntrySpeed = 120.0 // px/s
)

// Boss is the single enemy of an encounter. Its velocity is owned by the
// motion controller (MoveTo); its health only ever goes down through
// TakeDamage.
type Boss struct {
	X, Y      float64
	VX, VY    float64
	Size      float64
	Health    int
	MaxHealth int
	Phase     int // frames counted by the invincibility window
	Alive     bool

	sched *Scheduler
	snap  *Timer
}

// NewBoss creates a boss at (x,y) whose transits are timed on sched
func NewBoss(x, y, size float64, health int, sched *Scheduler) *Boss {
	if size <= 0 {
		size = BossSize
	}
	return &Boss{
		X:         x,
		Y:         y,
		Size:      size,
		Health:    health,
		MaxHealth: health,
		Alive:     true,
		sched:     sched,
	}
}

// MoveTo starts a straight transit to (x,y) at speed px/s. After
// distance/speed seconds a snap places the boss exactly on the target and
// stops it. A later MoveTo cancels the pending snap of an earlier one.
func (b *Boss) MoveTo(x, y, speed float64) {
	mustFinite("boss move", x, y, speed)
	if speed <= 0 {
		panic("boss move: speed must be positive")
	}
	if b.snap.Stop() {
		b.snap = nil
	}

	dir, length := Heading(r2.Vec{X: b.X, Y: b.Y}, r2.Vec{X: x, Y: y})
	b.VX = dir.X * speed
	b.VY = dir.Y * speed

	travel := time.Duration(length / speed * float64(time.Second))
	b.snap = b.sched.After(travel, func() {
		b.X, b.Y = x, y
		b.VX, b.VY = 0, 0
		b.snap = nil
	})
}

// Moving reports whether a transit is in progress
func (b *Boss) Moving() bool {
	return b.snap.Pending()
}

// Integrate advances the boss along its velocity for dt seconds
func (b *Boss) Integrate(dt float64) {
	if !b.Alive {
		return
	}
	b.X += b.VX * dt
	b.Y += b.VY * dt
}

// TakeDamage lowers health by amount, clamping at zero. It returns the damage
// actually applied.
func (b *Boss) TakeDamage(amount int) int {
	if !b.Alive || amount <= 0 {
		return 0
	}
	applied := amount
	if applied > b.Health {
		applied = b.Health
	}
	b.Health -= applied
	return applied
}

// Remove takes the boss out of the simulation and cancels any transit
func (b *Boss) Remove() {
	b.snap.Stop()
	b.snap = nil
	b.VX, b.VY = 0, 0
	b.Alive = false
}

// ToState converts to protocol state
func (b *Boss) ToState() BossState {
	return BossState{
		X:      round1(b.X),
		Y:      round1(b.Y),
		VX:     round1(b.VX),
		VY:     round1(b.VY),
		Size:   b.Size,
		HP:     b.Health,
		MaxHP:  b.MaxHealth,
		Phase:  b.Phase,
		Alive:  b.Alive,
		Moving: b.Moving(),
	}
}
