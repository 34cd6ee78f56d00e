package main

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// LaserStyle is the look and lifetime shared by the lasers of one figure
type LaserStyle struct {
	Thickness float64
	LifeMS    float64
	Hue       float64
	Alpha     float64 // percent
}

// LaserPool owns every laser segment of an encounter
type LaserPool struct {
	world  *ecs.World
	mapper *ecs.Map1[Beam]
	filter *ecs.Filter1[Beam]

	count   int
	scratch []ecs.Entity
}

// NewLaserPool creates a pool storing its lasers in world
func NewLaserPool(world *ecs.World) *LaserPool {
	return &LaserPool{
		world:  world,
		mapper: ecs.NewMap1[Beam](world),
		filter: ecs.NewFilter1[Beam](world),
	}
}

func (l *LaserPool) add(b Beam) {
	mustFinite("laser", b.SX, b.SY, b.Angle, b.Length, b.LifeMS)
	b.EX, b.EY = b.End()
	l.mapper.NewEntity(&b)
	l.count++
}

// wrapHue maps any hue into [0, 360)
func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// SpawnStraight creates a laser from (sx,sy) along angleDeg for length pixels
func (l *LaserPool) SpawnStraight(sx, sy, angleDeg, length float64, style LaserStyle) {
	l.add(Beam{
		SX: sx, SY: sy,
		Angle:     degToRad(angleDeg),
		Length:    length,
		Thickness: style.Thickness,
		LifeMS:    style.LifeMS,
		Hue:       wrapHue(style.Hue),
		Alpha:     style.Alpha,
	})
}

// SpawnExtended creates a laser through a and b that reaches extend pixels
// past both points, so it spans the whole stage whatever its rotation.
func (l *LaserPool) SpawnExtended(a, b r2.Vec, extend float64, style LaserStyle) {
	d := r2.Sub(b, a)
	base := r2.Norm(d)
	if base == 0 {
		base = 1
	}
	rad := math.Atan2(d.Y, d.X)
	dir := r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
	start := r2.Sub(a, r2.Scale(extend, dir))
	l.add(Beam{
		SX: start.X, SY: start.Y,
		Angle:     rad,
		Length:    base + extend*2,
		Thickness: style.Thickness,
		LifeMS:    style.LifeMS,
		Hue:       wrapHue(style.Hue),
		Alpha:     style.Alpha,
	})
}

// Update counts down every laser's lifetime by elapsedMS, removes expired
// lasers and refreshes the end points of the rest. It returns how many were
// removed.
func (l *LaserPool) Update(elapsedMS float64) int {
	dead := l.scratch[:0]

	query := l.filter.Query()
	for query.Next() {
		b := query.Get()
		b.LifeMS -= elapsedMS
		if b.LifeMS <= 0 {
			dead = append(dead, query.Entity())
			continue
		}
		b.EX, b.EY = b.End()
	}

	for _, e := range dead {
		l.world.RemoveEntity(e)
	}
	l.count -= len(dead)
	l.scratch = dead[:0]
	return len(dead)
}

// Clear removes every laser
func (l *LaserPool) Clear() {
	dead := l.scratch[:0]
	query := l.filter.Query()
	for query.Next() {
		dead = append(dead, query.Entity())
	}
	for _, e := range dead {
		l.world.RemoveEntity(e)
	}
	l.count = 0
	l.scratch = dead[:0]
}

// Len returns the number of live lasers
func (l *LaserPool) Len() int { return l.count }

// Each calls fn for every live laser. fn must not spawn or clear.
func (l *LaserPool) Each(fn func(b Beam)) {
	query := l.filter.Query()
	for query.Next() {
		fn(*query.Get())
	}
}

// States converts every laser to its wire form
func (l *LaserPool) States() []LaserState {
	out := make([]LaserState, 0, l.count)
	l.Each(func(b Beam) {
		out = append(out, LaserState{
			SX:        round1(b.SX),
			SY:        round1(b.SY),
			EX:        round1(b.EX),
			EY:        round1(b.EY),
			Thickness: b.Thickness,
			Hue:       b.Hue,
			Alpha:     b.Alpha / 100,
		})
	})
	return out
}
