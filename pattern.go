package main

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// patternState holds the accumulators that outlive a single burst.
//
//	RingAngle  written by the spinning ring, read once by the scatter pulse at start
//	PulseAngle written and read by the scatter pulse only
//	Bursts     written by every routine through Encounter.burst
type patternState struct {
	RingAngle  float64
	PulseAngle float64
	Bursts     int
}

// SpinningRingConfig is the rotating fan fired straight out of the boss.
type SpinningRingConfig struct {
	Shots          int     // per burst
	Speed          float64 // px/frame
	Step           float64 // degrees between shots of a burst
	Turn           float64 // degrees added to the ring angle after each burst
	Sprite         int
	Size           float64
	StaggerFrames  int // frames between shots of one burst; 0 fires the burst at once
	IntervalFrames int
	Sound          SoundEvent
}

// ScatterPulseConfig is one aimed shot plus a random cloud around it.
type ScatterPulseConfig struct {
	Offset         float64 // degrees relative to the initial ring angle
	AimSpeed       float64
	AimSprite      int
	Cloud          int
	MinSpeed       float64
	MaxSpeed       float64
	Spread         float64 // half-width in degrees
	CloudSprite    int
	Size           float64
	Turn           float64
	IntervalFrames int
	Sound          SoundEvent
}

// PatrolConfig moves the boss to random points of a sub-rectangle.
type PatrolConfig struct {
	IntervalFrames int
	MinX, MaxX     float64 // MaxX is measured from the right edge
	MinY, MaxY     float64
	Speed          float64 // px/s
}

// PentagramConfig is the star-shaped laser mesh with two player-locked lines.
type PentagramConfig struct {
	CenterY        float64
	Radius         float64
	Pad            float64 // how far the player lines start off stage
	Star           LaserStyle
	Cross          LaserStyle
	DelayFrames    int
	IntervalFrames int
	Sound          SoundEvent
}

// AimedRingConfig fires rings of aimed fans from points orbiting the boss.
type AimedRingConfig struct {
	DelayFrames    int
	Rings          int
	PerRing        int
	OrbitRadius    float64
	OrbitDivisions int // orbit angle advances 360/OrbitDivisions per ring
	Speed          float64
	Sprite         int
	Size           float64
	VisualDelay    float64 // seconds
	IntervalFrames int
}

// RadialFamily is one of the two arithmetic progressions of a radial mix.
type RadialFamily struct {
	BaseSpeed float64
	SpeedStep float64 // per shot index
	Offset    float64 // degrees
	AngleStep float64 // degrees per shot index
	Sprite    int
	Size      float64
}

// RadialMixConfig is the two-family layered radial burst.
type RadialMixConfig struct {
	DelayFrames    int
	Rings          int
	PerRing        int
	A, B           RadialFamily
	IntervalFrames int
	Sound          SoundEvent
}

// RevolverConfig sweeps full revolutions of aimed shots at several speeds.
type RevolverConfig struct {
	Revolutions int
	PerRev      int
	Speeds      []float64 // px/s
	ShotGap     time.Duration
	Pause       time.Duration
	Sprite      int
	Size        float64
}

// spinningRing fires Shots projectiles Step degrees apart from the boss,
// then turns the shared ring angle by Turn.
func spinningRing(e *Encounter, cfg SpinningRingConfig) Routine {
	return func(t *Task) error {
		for {
			angle := e.pattern.RingAngle
			for i := 0; i < cfg.Shots; i++ {
				e.shots.Spawn(ShotSpec{
					X: e.boss.X, Y: e.boss.Y,
					Speed:  cfg.Speed,
					Angle:  angle,
					Sprite: cfg.Sprite,
					Size:   cfg.Size,
				})
				angle += cfg.Step
				if cfg.StaggerFrames > 0 {
					if err := t.Wait(cfg.StaggerFrames); err != nil {
						return err
					}
				}
			}
			e.burst(t.Name(), cfg.Shots, cfg.Sound)

			e.pattern.RingAngle += cfg.Turn
			if err := t.Wait(cfg.IntervalFrames); err != nil {
				return err
			}
		}
	}
}

// scatterPulse starts from the ring angle at the time it is spawned and
// keeps its own angle afterwards.
func scatterPulse(e *Encounter, cfg ScatterPulseConfig, initial float64) Routine {
	return func(t *Task) error {
		e.pattern.PulseAngle = initial + cfg.Offset
		for {
			aim := e.pattern.PulseAngle
			e.shots.Spawn(ShotSpec{
				X: e.boss.X, Y: e.boss.Y,
				Speed:  cfg.AimSpeed,
				Angle:  aim,
				Sprite: cfg.AimSprite,
				Size:   cfg.Size,
			})
			for i := 0; i < cfg.Cloud; i++ {
				speed := e.randRange(cfg.MinSpeed, cfg.MaxSpeed)
				angle := aim + e.randRange(-cfg.Spread, cfg.Spread)
				e.shots.Spawn(ShotSpec{
					X: e.boss.X, Y: e.boss.Y,
					Speed:  speed,
					Angle:  angle,
					Sprite: cfg.CloudSprite,
					Size:   cfg.Size,
				})
			}
			e.burst(t.Name(), cfg.Cloud+1, cfg.Sound)

			e.pattern.PulseAngle += cfg.Turn
			if err := t.Wait(cfg.IntervalFrames); err != nil {
				return err
			}
		}
	}
}

// randomPatrol hands a random destination to the motion controller every
// IntervalFrames.
func randomPatrol(e *Encounter, cfg PatrolConfig) Routine {
	return func(t *Task) error {
		for {
			if err := t.Wait(cfg.IntervalFrames); err != nil {
				return err
			}
			x := e.randRange(cfg.MinX, e.field.Width-cfg.MaxX)
			y := e.randRange(cfg.MinY, cfg.MaxY)
			e.boss.MoveTo(x, y, cfg.Speed)
		}
	}
}

// pentagramPoints returns the five vertices of a regular pentagon starting
// at the top and going clockwise in screen coordinates.
func pentagramPoints(cx, cy, radius float64) [5]r2.Vec {
	var pts [5]r2.Vec
	for i := range pts {
		pts[i] = Polar(cx, cy, radius, -90+float64(i)*72)
	}
	return pts
}

// drawPentagram replaces every live laser with the star and the two lines
// through the player's current position.
func drawPentagram(e *Encounter, cfg PentagramConfig) {
	e.lasers.Clear()

	pts := pentagramPoints(e.field.CenterX(), cfg.CenterY, cfg.Radius)
	extend := e.field.Diagonal()
	for i := range pts {
		e.lasers.SpawnExtended(pts[i], pts[(i+2)%5], extend, cfg.Star)
	}

	// Sampled once; the lines do not follow the player afterwards
	px, py := e.player.X, e.player.Y
	e.lasers.SpawnStraight(px, -cfg.Pad, 90, e.field.Height+cfg.Pad*2, cfg.Cross)
	e.lasers.SpawnStraight(-cfg.Pad, py, 0, e.field.Width+cfg.Pad*2, cfg.Cross)
}

func laserMesh(e *Encounter, cfg PentagramConfig) Routine {
	return func(t *Task) error {
		for {
			if err := t.Wait(cfg.DelayFrames); err != nil {
				return err
			}
			drawPentagram(e, cfg)
			e.burst(t.Name(), 7, cfg.Sound)
			if err := t.Wait(cfg.IntervalFrames); err != nil {
				return err
			}
		}
	}
}

// fireAimedRings emits Rings x PerRing shots. Each ring sits on an orbit
// point around the boss and fans a full aimed spread at the player.
func fireAimedRings(e *Encounter, cfg AimedRingConfig, orbit float64) int {
	n := 0
	for ring := 0; ring < cfg.Rings; ring++ {
		for j := 0; j < cfg.PerRing; j++ {
			p := Polar(e.boss.X, e.boss.Y, cfg.OrbitRadius, orbit)
			aim := AngleTo(p.X, p.Y, e.player.X, e.player.Y)
			if e.shots.Spawn(ShotSpec{
				X: p.X, Y: p.Y,
				Speed:  cfg.Speed,
				Angle:  FanAngle(aim, j, cfg.PerRing),
				Sprite: cfg.Sprite,
				Size:   cfg.Size,
				Delay:  cfg.VisualDelay,
			}) {
				n++
			}
		}
		orbit += RingStep(cfg.OrbitDivisions)
	}
	return n
}

func aimedRingBurst(e *Encounter, cfg AimedRingConfig) Routine {
	return func(t *Task) error {
		for {
			orbit := AngleTo(e.boss.X, e.boss.Y, e.player.X, e.player.Y)
			if err := t.Wait(cfg.DelayFrames); err != nil {
				return err
			}
			n := fireAimedRings(e, cfg, orbit)
			e.burst(t.Name(), n, SoundEvent{})
			if err := t.Wait(cfg.IntervalFrames); err != nil {
				return err
			}
		}
	}
}

// fireRadialMix emits both families for every (ring, index) pair around base.
func fireRadialMix(e *Encounter, cfg RadialMixConfig, base float64) int {
	n := 0
	ringStep := 0.0
	if cfg.Rings > 1 {
		ringStep = 360 / float64(cfg.Rings-1)
	}
	for i := 0; i < cfg.Rings; i++ {
		for j := 0; j < cfg.PerRing; j++ {
			for _, fam := range [2]RadialFamily{cfg.A, cfg.B} {
				if e.shots.Spawn(ShotSpec{
					X: e.boss.X, Y: e.boss.Y,
					Speed:  fam.BaseSpeed + float64(j)*fam.SpeedStep,
					Angle:  base + fam.Offset + float64(i)*ringStep + float64(j)*fam.AngleStep,
					Sprite: fam.Sprite,
					Size:   fam.Size,
				}) {
					n++
				}
			}
		}
	}
	return n
}

func radialMix(e *Encounter, cfg RadialMixConfig) Routine {
	return func(t *Task) error {
		for {
			if err := t.Wait(cfg.DelayFrames); err != nil {
				return err
			}
			base := e.randRange(0, 359)
			n := fireRadialMix(e, cfg, base)
			e.burst(t.Name(), n, cfg.Sound)
			if err := t.Wait(cfg.IntervalFrames); err != nil {
				return err
			}
		}
	}
}

// revolver sweeps Revolutions full turns of PerRev aimed shots, one shot per
// speed at each step. It is the only pattern that finishes on its own.
func revolver(e *Encounter, cfg RevolverConfig) Routine {
	return func(t *Task) error {
		step := 360 / float64(cfg.PerRev)
		for rev := 0; rev < cfg.Revolutions; rev++ {
			for i := 0; i < cfg.PerRev; i++ {
				aim := AngleTo(e.boss.X, e.boss.Y, e.player.X, e.player.Y)
				for _, speed := range cfg.Speeds {
					e.shots.Spawn(ShotSpec{
						X: e.boss.X, Y: e.boss.Y,
						Speed:  speed / ShotSpeedScale,
						Angle:  step*float64(i) + aim,
						Sprite: cfg.Sprite,
						Size:   cfg.Size,
					})
				}
				if cfg.ShotGap > 0 {
					if err := t.Sleep(cfg.ShotGap); err != nil {
						return err
					}
				}
			}
			e.burst(t.Name(), cfg.PerRev*len(cfg.Speeds), SoundEvent{})
			if cfg.Pause > 0 {
				if err := t.Sleep(cfg.Pause); err != nil {
					return err
				}
			}
		}
		return nil
	}
}
