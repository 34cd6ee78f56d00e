package main

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
)

func newTestPools() (*ProjectilePool, *LaserPool) {
	world := ecs.NewWorld()
	return NewProjectilePool(world, DefaultPlayfield()), NewLaserPool(world)
}

func TestProjectileVelocityScale(t *testing.T) {
	shots, _ := newTestPools()
	shots.Spawn(ShotSpec{X: 400, Y: 300, Speed: 2, Angle: 30, Sprite: 303, Size: 5})

	if shots.Len() != 1 || shots.Spawned() != 1 {
		t.Fatalf("expected 1 projectile, got len=%d spawned=%d", shots.Len(), shots.Spawned())
	}
	shots.Each(func(pos Position, vel Velocity, shot Shot) {
		speed := math.Hypot(vel.X, vel.Y)
		if !approx(speed, 120, 1e-9) {
			t.Errorf("expected |v| = 120 px/s, got %f", speed)
		}
		if !approx(math.Atan2(vel.Y, vel.X), degToRad(30), 1e-9) {
			t.Errorf("velocity should point along 30 degrees")
		}
		if shot.Sprite != 303 || shot.Size != 5 {
			t.Errorf("unexpected shot metadata %+v", shot)
		}
	})
}

func TestProjectileIntegrate(t *testing.T) {
	shots, _ := newTestPools()
	shots.Spawn(ShotSpec{X: 100, Y: 100, Speed: 1, Angle: 0})

	shots.Integrate(0.5)
	shots.Each(func(pos Position, _ Velocity, _ Shot) {
		if !approx(pos.X, 130, 1e-9) || pos.Y != 100 {
			t.Errorf("expected (130,100) after 0.5s at 60px/s, got (%f,%f)", pos.X, pos.Y)
		}
	})
}

func TestProjectileCulledOutsideMargin(t *testing.T) {
	shots, _ := newTestPools()
	f := DefaultPlayfield()
	// Starts outside the culling bounds: removed on the next tick
	shots.Spawn(ShotSpec{X: -f.Margin - 1, Y: 100, Speed: 0, Angle: 0})
	// Leaves the bounds during this tick
	shots.Spawn(ShotSpec{X: f.Width + f.Margin - 0.5, Y: 100, Speed: 1, Angle: 0})
	// Stays inside
	shots.Spawn(ShotSpec{X: 400, Y: 300, Speed: 1, Angle: 90})

	removed := shots.Integrate(1.0 / TickRate)
	if removed != 2 {
		t.Errorf("expected 2 culled projectiles, got %d", removed)
	}
	if shots.Len() != 1 {
		t.Errorf("expected 1 projectile left, got %d", shots.Len())
	}
	if shots.Spawned() != 3 {
		t.Errorf("spawned counter should not drop on cull, got %d", shots.Spawned())
	}
}

func TestProjectileDelayNeverPausesMotion(t *testing.T) {
	shots, _ := newTestPools()
	shots.Spawn(ShotSpec{X: 100, Y: 100, Speed: 2, Angle: 0, Delay: 10.0 / TickRate})

	dt := 1.0 / TickRate
	shots.Integrate(dt)
	shots.Each(func(pos Position, _ Velocity, shot Shot) {
		if !approx(pos.X, 102, 1e-9) {
			t.Errorf("delayed projectile should still move, got x=%f", pos.X)
		}
		if !approx(shot.Delay, 9.0/TickRate, 1e-9) {
			t.Errorf("expected delay to count down, got %f", shot.Delay)
		}
	})

	for i := 0; i < 20; i++ {
		shots.Integrate(dt)
	}
	shots.Each(func(_ Position, _ Velocity, shot Shot) {
		if shot.Delay != 0 {
			t.Errorf("delay should bottom out at 0, got %f", shot.Delay)
		}
	})
}

func TestProjectileNonFinitePanics(t *testing.T) {
	shots, _ := newTestPools()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for NaN angle")
		}
	}()
	shots.Spawn(ShotSpec{X: 0, Y: 0, Speed: 1, Angle: math.NaN()})
}

func TestProjectileClearAndStates(t *testing.T) {
	shots, _ := newTestPools()
	for i := 0; i < 10; i++ {
		shots.Spawn(ShotSpec{X: 400, Y: 300, Speed: 1, Angle: float64(i * 36), Size: 5, Delay: 0.5})
	}
	states := shots.States()
	if len(states) != 10 {
		t.Fatalf("expected 10 states, got %d", len(states))
	}
	for _, s := range states {
		if s.Alpha != ProjectileAlpha {
			t.Errorf("expected alpha %v, got %v", ProjectileAlpha, s.Alpha)
		}
		if s.Delay != 0.5 {
			t.Errorf("expected delay 0.5 on the wire, got %v", s.Delay)
		}
	}

	shots.Clear()
	if shots.Len() != 0 || len(shots.States()) != 0 {
		t.Error("Clear should remove every projectile")
	}
}

func TestProjectilePoolCeiling(t *testing.T) {
	shots, _ := newTestPools()
	for i := 0; i < maxProjectiles; i++ {
		if !shots.Spawn(ShotSpec{X: 400, Y: 300}) {
			t.Fatalf("spawn %d rejected below the ceiling", i)
		}
	}
	if shots.Spawn(ShotSpec{X: 400, Y: 300}) {
		t.Error("spawn above the ceiling should be rejected")
	}
}
