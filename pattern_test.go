package main

import (
	"math"
	"sort"
	"testing"
)

// newBareEncounter returns a started encounter with no script, the boss at
// (400,100) and the player at (400,500).
func newBareEncounter(t *testing.T) *Encounter {
	t.Helper()
	e := NewEncounter(Variant{
		Name:               "bare",
		Health:             1000,
		ReducedDamageScale: 1,
		BossStart:          Spot{X: 400, Y: 100},
		PlayerStart:        Spot{X: 400, Y: 500},
	}, EncounterOptions{Seed: 7})
	e.Start()
	t.Cleanup(e.Close)
	return e
}

func normDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return math.Round(a*1e6) / 1e6
}

func shotAngles(e *Encounter) []float64 {
	var out []float64
	e.shots.Each(func(_ Position, vel Velocity, _ Shot) {
		out = append(out, normDeg(radToDeg(math.Atan2(vel.Y, vel.X))))
	})
	sort.Float64s(out)
	return out
}

func degreeSet(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = normDeg(start + float64(i)*step)
	}
	sort.Float64s(out)
	return out
}

func sameAngles(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !approx(a[i], b[i], 1e-6) {
			return false
		}
	}
	return true
}

func TestSpinningRingBursts(t *testing.T) {
	e := newBareEncounter(t)
	e.sched.Spawn("rotation", spinningRing(e, nonSpellRing))

	first := shotAngles(e)
	if want := degreeSet(0, 25, 11); !sameAngles(first, want) {
		t.Fatalf("first burst angles %v, want %v", first, want)
	}
	if e.pattern.RingAngle != 15 {
		t.Errorf("ring angle should turn by 15, got %f", e.pattern.RingAngle)
	}

	e.sched.Advance(FrameDuration)
	all := shotAngles(e)
	want := append(degreeSet(0, 25, 11), degreeSet(15, 25, 11)...)
	sort.Float64s(want)
	if !sameAngles(all, want) {
		t.Errorf("after two bursts got %v, want %v", all, want)
	}
	e.shots.Each(func(_ Position, vel Velocity, shot Shot) {
		if !approx(math.Hypot(vel.X, vel.Y), 120, 1e-9) {
			t.Errorf("ring shots should move at 120 px/s")
		}
		if shot.Sprite != 303 {
			t.Errorf("expected sprite 303, got %d", shot.Sprite)
		}
	})
	if e.pattern.Bursts != 2 {
		t.Errorf("expected 2 bursts, got %d", e.pattern.Bursts)
	}
}

func TestSpinningRingStagger(t *testing.T) {
	e := newBareEncounter(t)
	ring := nonSpellRing
	ring.StaggerFrames = 1
	e.sched.Spawn("rotation", spinningRing(e, ring))

	if e.shots.Len() != 1 {
		t.Fatalf("staggered ring should fire one shot at spawn, got %d", e.shots.Len())
	}
	for i := 0; i < 10; i++ {
		e.sched.Advance(FrameDuration)
	}
	if e.shots.Len() != 11 {
		t.Errorf("expected a full burst after 10 more frames, got %d", e.shots.Len())
	}
	// The routine also waits after the last shot before closing the burst
	if e.pattern.Bursts != 0 {
		t.Errorf("burst should still be open after 10 frames, got %d", e.pattern.Bursts)
	}
	e.sched.Advance(FrameDuration)
	if e.pattern.Bursts != 1 {
		t.Errorf("expected 1 completed burst, got %d", e.pattern.Bursts)
	}
}

func TestScatterPulse(t *testing.T) {
	e := newBareEncounter(t)
	e.sched.Spawn("clod", scatterPulse(e, nonSpellPulse, 0))

	if e.shots.Len() != 41 {
		t.Fatalf("expected 1 aimed + 40 cloud shots, got %d", e.shots.Len())
	}
	aimed := 0
	e.shots.Each(func(_ Position, vel Velocity, shot Shot) {
		speed := math.Hypot(vel.X, vel.Y)
		angle := radToDeg(math.Atan2(vel.Y, vel.X))
		switch shot.Sprite {
		case nonSpellPulse.AimSprite:
			aimed++
			if !approx(angle, -90, 1e-9) || !approx(speed, 150, 1e-9) {
				t.Errorf("aimed shot at %f deg %f px/s, want -90 / 150", angle, speed)
			}
		case nonSpellPulse.CloudSprite:
			if speed < 60 || speed >= 135 {
				t.Errorf("cloud speed %f outside [60,135)", speed)
			}
			if angle < -150 || angle > -30 {
				t.Errorf("cloud angle %f outside -90 +/- 60", angle)
			}
		default:
			t.Errorf("unexpected sprite %d", shot.Sprite)
		}
	})
	if aimed != 1 {
		t.Errorf("expected exactly one aimed shot, got %d", aimed)
	}
	if e.pattern.PulseAngle != -45 {
		t.Errorf("pulse angle should advance by 45, got %f", e.pattern.PulseAngle)
	}

	for i := 0; i < nonSpellPulse.IntervalFrames; i++ {
		e.sched.Advance(FrameDuration)
	}
	if e.shots.Len() != 82 {
		t.Errorf("expected a second pulse after %d frames, got %d shots", nonSpellPulse.IntervalFrames, e.shots.Len())
	}
}

func TestScatterPulseIgnoresLaterRingTurns(t *testing.T) {
	e := newBareEncounter(t)
	e.pattern.RingAngle = 30
	e.sched.Spawn("clod", scatterPulse(e, nonSpellPulse, e.pattern.RingAngle))
	e.pattern.RingAngle = 999

	if e.pattern.PulseAngle != 30-90+45 {
		t.Errorf("pulse should start from the ring angle captured at spawn, got %f", e.pattern.PulseAngle)
	}
}

func TestRandomPatrolStaysInBounds(t *testing.T) {
	e := newBareEncounter(t)
	e.sched.Spawn("motion", randomPatrol(e, nonSpellPatrol))

	for i := 0; i < nonSpellPatrol.IntervalFrames; i++ {
		e.Step(FrameDuration)
	}
	if !e.boss.Moving() {
		t.Fatal("boss should be on its way after one patrol interval")
	}
	for i := 0; i < 100; i++ {
		e.Step(FrameDuration)
	}
	if e.boss.Moving() {
		t.Fatal("boss should have arrived")
	}
	b := e.boss
	if b.X < 64 || b.X > e.field.Width-64 || b.Y < 80 || b.Y > 180 {
		t.Errorf("patrol target (%f,%f) outside the patrol rectangle", b.X, b.Y)
	}
}

func TestPentagramPoints(t *testing.T) {
	pts := pentagramPoints(400, 220, 260)
	if !approx(pts[0].X, 400, 1e-9) || !approx(pts[0].Y, -40, 1e-9) {
		t.Errorf("first vertex should be straight up, got %v", pts[0])
	}
	for i, p := range pts {
		if d := math.Hypot(p.X-400, p.Y-220); !approx(d, 260, 1e-9) {
			t.Errorf("vertex %d at distance %f, want 260", i, d)
		}
	}
	if pts[1].X <= 400 {
		t.Errorf("vertices should run clockwise on screen, second is at x=%f", pts[1].X)
	}
}

func TestDrawPentagramReplacesLasers(t *testing.T) {
	e := newBareEncounter(t)
	e.player.X, e.player.Y = 250, 450

	drawPentagram(e, spellMesh)
	if e.lasers.Len() != 7 {
		t.Fatalf("expected 5 star lines + 2 cross lines, got %d", e.lasers.Len())
	}
	drawPentagram(e, spellMesh)
	if e.lasers.Len() != 7 {
		t.Fatalf("redrawing should replace the old figure, got %d", e.lasers.Len())
	}

	vertical, horizontal := false, false
	e.lasers.Each(func(b Beam) {
		if approx(b.SX, 250, 1e-6) && approx(b.EX, 250, 1e-6) && b.SY < 0 && b.EY > e.field.Height {
			vertical = true
		}
		if approx(b.SY, 450, 1e-6) && approx(b.EY, 450, 1e-6) && b.SX < 0 && b.EX > e.field.Width {
			horizontal = true
		}
	})
	if !vertical || !horizontal {
		t.Errorf("cross lines should pass through the player: vertical=%v horizontal=%v", vertical, horizontal)
	}

	// The lines stay where the player was
	e.player.X = 600
	found := false
	e.lasers.Each(func(b Beam) {
		if approx(b.SX, 250, 1e-6) && approx(b.EX, 250, 1e-6) {
			found = true
		}
	})
	if !found {
		t.Error("cross lines must not follow the player after drawing")
	}
}

func TestFireAimedRings(t *testing.T) {
	e := newBareEncounter(t)
	n := fireAimedRings(e, spellAimed, 90)
	if n != 220 {
		t.Fatalf("expected 10 rings x 22 shots, got %d", n)
	}
	if e.shots.Len() != 220 {
		t.Fatalf("expected 220 live shots, got %d", e.shots.Len())
	}
	e.shots.Each(func(_ Position, vel Velocity, shot Shot) {
		if !approx(shot.Delay, 10.0/TickRate, 1e-12) {
			t.Errorf("aimed shots should carry a 10-frame visual delay, got %f", shot.Delay)
		}
		if !approx(math.Hypot(vel.X, vel.Y), 120, 1e-9) {
			t.Errorf("aimed shots should move at 120 px/s")
		}
	})

	// Orbit points are 45 degrees apart on a 150px circle around the boss
	origins := map[[2]float64]int{}
	e.shots.Each(func(pos Position, _ Velocity, _ Shot) {
		d := math.Hypot(pos.X-e.boss.X, pos.Y-e.boss.Y)
		if !approx(d, 150, 1e-6) {
			t.Errorf("shot origin %f px from the boss, want 150", d)
		}
		origins[[2]float64{math.Round(pos.X), math.Round(pos.Y)}]++
	})
	// Ten rings on eight divisions revisit two orbit points
	if len(origins) != 8 {
		t.Errorf("expected 8 distinct orbit points, got %d", len(origins))
	}
}

func TestAimedRingSeamIsDoubled(t *testing.T) {
	e := newBareEncounter(t)
	cfg := spellAimed
	cfg.Rings = 1
	fireAimedRings(e, cfg, 0)

	p := Polar(e.boss.X, e.boss.Y, cfg.OrbitRadius, 0)
	aim := normDeg(AngleTo(p.X, p.Y, e.player.X, e.player.Y))
	atAim := 0
	for _, a := range shotAngles(e) {
		if approx(a, aim, 1e-6) {
			atAim++
		}
	}
	if atAim != 2 {
		t.Errorf("first and last fan elements should both point at the player, got %d", atAim)
	}
}

func TestFireRadialMix(t *testing.T) {
	e := newBareEncounter(t)
	n := fireRadialMix(e, spellRadial, 0)
	if n != 154 {
		t.Fatalf("expected 11 x 7 x 2 shots, got %d", n)
	}

	var a, b int
	e.shots.Each(func(_ Position, vel Velocity, shot Shot) {
		speed := math.Hypot(vel.X, vel.Y) / ShotSpeedScale
		switch shot.Sprite {
		case spellRadial.A.Sprite:
			a++
			if speed < 2.5-6*0.225-1e-9 || speed > 2.5+1e-9 {
				t.Errorf("family A speed %f out of range", speed)
			}
		case spellRadial.B.Sprite:
			b++
			if speed < 1.5-1e-9 || speed > 1.5+6*0.1+1e-9 {
				t.Errorf("family B speed %f out of range", speed)
			}
		}
	})
	if a != 77 || b != 77 {
		t.Errorf("expected 77 shots per family, got %d / %d", a, b)
	}
}

func TestRevolverFinishes(t *testing.T) {
	e := newBareEncounter(t)
	task := e.sched.Spawn("revolver", revolver(e, tshotRevolver))

	perRev := tshotRevolver.PerRev * len(tshotRevolver.Speeds)
	if e.shots.Len() != perRev {
		t.Fatalf("expected one revolution at spawn (%d shots), got %d", perRev, e.shots.Len())
	}

	for i := 0; i < 149; i++ {
		e.sched.Advance(FrameDuration)
	}
	if task.Done() {
		t.Fatal("revolver finished before its last pause")
	}
	e.sched.Advance(FrameDuration)
	if !task.Done() || task.Err() != nil {
		t.Fatalf("revolver should finish cleanly after 2.5s, done=%v err=%v", task.Done(), task.Err())
	}
	if got := e.shots.Spawned(); got != uint64(5*perRev) {
		t.Errorf("expected %d shots over 5 revolutions, got %d", 5*perRev, got)
	}
	if e.pattern.Bursts != 5 {
		t.Errorf("expected 5 bursts, got %d", e.pattern.Bursts)
	}
}

func TestRevolverFirstShotAimsAtPlayer(t *testing.T) {
	e := newBareEncounter(t)
	e.sched.Spawn("revolver", revolver(e, tshotRevolver))

	// Boss (400,100) to player (400,500) is straight down
	speeds := map[float64]bool{}
	e.shots.Each(func(_ Position, vel Velocity, _ Shot) {
		if approx(radToDeg(math.Atan2(vel.Y, vel.X)), 90, 1e-6) {
			speeds[math.Round(math.Hypot(vel.X, vel.Y))] = true
		}
	})
	for _, s := range tshotRevolver.Speeds {
		if !speeds[s] {
			t.Errorf("expected a shot at %v px/s aimed at the player", s)
		}
	}
}
