package main

import (
	"math"

	"github.com/mlange-42/ark/ecs"
)

const (
	ProjectileAlpha = 0.95
	maxProjectiles  = 20000 // hard ceiling per encounter
)

// ShotSpec describes one projectile to create. Speed is in pixels per frame
// and Angle in degrees, the units the pattern formulas are written in.
type ShotSpec struct {
	X, Y   float64
	Speed  float64
	Angle  float64
	Sprite int
	Size   float64
	Delay  float64 // seconds
}

// ProjectilePool owns every projectile of an encounter. Callers only ask it
// to create projectiles; they never hold on to the entities.
type ProjectilePool struct {
	world  *ecs.World
	mapper *ecs.Map3[Position, Velocity, Shot]
	filter *ecs.Filter3[Position, Velocity, Shot]
	field  Playfield

	count   int
	spawned uint64
	culled  uint64
	scratch []ecs.Entity
}

// NewProjectilePool creates a pool storing its projectiles in world
func NewProjectilePool(world *ecs.World, field Playfield) *ProjectilePool {
	return &ProjectilePool{
		world:  world,
		mapper: ecs.NewMap3[Position, Velocity, Shot](world),
		filter: ecs.NewFilter3[Position, Velocity, Shot](world),
		field:  field,
	}
}

// Spawn creates a projectile moving at ss.Speed*60 px/s along ss.Angle.
// It reports false when the pool is full.
func (p *ProjectilePool) Spawn(ss ShotSpec) bool {
	mustFinite("projectile", ss.X, ss.Y, ss.Speed, ss.Angle, ss.Delay)
	if p.count >= maxProjectiles {
		return false
	}
	rad := degToRad(ss.Angle)
	pos := Position{X: ss.X, Y: ss.Y}
	vel := Velocity{
		X: math.Cos(rad) * ss.Speed * ShotSpeedScale,
		Y: math.Sin(rad) * ss.Speed * ShotSpeedScale,
	}
	shot := Shot{Sprite: ss.Sprite, Size: ss.Size, Delay: ss.Delay}
	p.mapper.NewEntity(&pos, &vel, &shot)
	p.count++
	p.spawned++
	return true
}

// Integrate moves every projectile by dt seconds, counts down pending delays
// and removes projectiles outside the culling bounds. It returns how many
// were removed.
func (p *ProjectilePool) Integrate(dt float64) int {
	dead := p.scratch[:0]

	query := p.filter.Query()
	for query.Next() {
		pos, vel, shot := query.Get()
		outside := !p.field.InCullBounds(pos.X, pos.Y)

		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		if shot.Delay > 0 {
			shot.Delay = math.Max(0, shot.Delay-dt)
		}

		if outside || !p.field.InCullBounds(pos.X, pos.Y) {
			dead = append(dead, query.Entity())
		}
	}

	// Removal must wait until the query is exhausted
	for _, e := range dead {
		p.world.RemoveEntity(e)
	}
	p.count -= len(dead)
	p.culled += uint64(len(dead))
	p.scratch = dead[:0]
	return len(dead)
}

// Clear removes every projectile
func (p *ProjectilePool) Clear() {
	dead := p.scratch[:0]
	query := p.filter.Query()
	for query.Next() {
		dead = append(dead, query.Entity())
	}
	for _, e := range dead {
		p.world.RemoveEntity(e)
	}
	p.count = 0
	p.scratch = dead[:0]
}

// Len returns the number of live projectiles
func (p *ProjectilePool) Len() int { return p.count }

// Spawned returns the number of projectiles ever created
func (p *ProjectilePool) Spawned() uint64 { return p.spawned }

// Each calls fn for every live projectile. fn must not spawn or clear.
func (p *ProjectilePool) Each(fn func(pos Position, vel Velocity, shot Shot)) {
	query := p.filter.Query()
	for query.Next() {
		pos, vel, shot := query.Get()
		fn(*pos, *vel, *shot)
	}
}

// States converts every projectile to its wire form
func (p *ProjectilePool) States() []ProjectileState {
	out := make([]ProjectileState, 0, p.count)
	p.Each(func(pos Position, _ Velocity, shot Shot) {
		out = append(out, ProjectileState{
			X:      round1(pos.X),
			Y:      round1(pos.Y),
			Sprite: shot.Sprite,
			Size:   shot.Size,
			Alpha:  ProjectileAlpha,
			Delay:  round3(shot.Delay),
		})
	})
	return out
}
