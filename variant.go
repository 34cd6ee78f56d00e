package main

import (
	"fmt"
	"sort"
	"time"
)

// Spot is a position on the stage. Centered measures X from the horizontal
// center and FromBottom measures Y up from the bottom edge.
type Spot struct {
	X, Y       float64
	Centered   bool
	FromBottom bool
}

// Resolve converts the spot to stage coordinates
func (s Spot) Resolve(f Playfield) (float64, float64) {
	x, y := s.X, s.Y
	if s.Centered {
		x += f.CenterX()
	}
	if s.FromBottom {
		y = f.Height - y
	}
	return x, y
}

// Variant describes one boss encounter: its numbers and the script its main
// routine runs.
type Variant struct {
	Name               string
	Health             int
	IntroFrames        int     // Intro -> Active threshold
	ReducedDamageEnd   int     // the phase counter stops here
	ReducedDamageScale float64 // damage multiplier while the counter runs
	IntroSound         SoundEvent
	RingStagger        int // frames between spinning-ring shots

	BossStart   Spot
	BossPost    Spot
	PostSpeed   float64 // px/s; 0 leaves the boss at BossStart
	PlayerStart Spot
	BossSize    float64
	PlayerSize  float64

	Main func(e *Encounter) Routine
}

const (
	VariantNonSpell1 = "NonSpell1"
	VariantSpell1    = "Spell1"
	VariantTShot1    = "TShot1"
)

var (
	nonSpellRing = SpinningRingConfig{
		Shots: 11, Speed: 2, Step: 25, Turn: 15,
		Sprite: 303, Size: 5,
		IntervalFrames: 1,
		Sound:          SoundEvent{Name: "shot1", Volume: 85},
	}
	nonSpellPulse = ScatterPulseConfig{
		Offset:   -90,
		AimSpeed: 2.5, AimSprite: 363,
		Cloud: 40, MinSpeed: 1, MaxSpeed: 2.25, Spread: 60,
		CloudSprite: 76, Size: 5,
		Turn:           45,
		IntervalFrames: 33,
		Sound:          SoundEvent{Name: "shot2", Volume: 70},
	}
	nonSpellPatrol = PatrolConfig{
		IntervalFrames: 150,
		MinX:           64, MaxX: 64,
		MinY: 80, MaxY: 180,
		Speed: 220,
	}

	spellMesh = PentagramConfig{
		CenterY: 220, Radius: 260, Pad: 120,
		Star:           LaserStyle{Thickness: 14, LifeMS: 2000, Hue: 140, Alpha: 60},
		Cross:          LaserStyle{Thickness: 16, LifeMS: 2000, Hue: 210, Alpha: 70},
		DelayFrames:    60,
		IntervalFrames: 240,
		Sound:          SoundEvent{Name: "laser_mesh", Volume: 80},
	}
	spellAimed = AimedRingConfig{
		DelayFrames: 60,
		Rings:       10, PerRing: 22,
		OrbitRadius: 150, OrbitDivisions: 8,
		Speed: 2, Sprite: 293, Size: 6,
		VisualDelay:    10.0 / TickRate,
		IntervalFrames: 240,
	}
	spellRadial = RadialMixConfig{
		DelayFrames: 60,
		Rings:       11, PerRing: 7,
		A:              RadialFamily{BaseSpeed: 2.5, SpeedStep: -0.225, AngleStep: 3, Sprite: 358, Size: 10},
		B:              RadialFamily{BaseSpeed: 1.5, SpeedStep: 0.1, Offset: 30, AngleStep: -12, Sprite: 327, Size: 10},
		IntervalFrames: 240,
		Sound:          SoundEvent{Name: "shot2", Volume: 90},
	}

	tshotRevolver = RevolverConfig{
		Revolutions: 5, PerRev: 60,
		Speeds: []float64{150, 200, 250},
		Pause:  500 * time.Millisecond,
		Size:   6,
	}
)

func nonSpell1Main(e *Encounter) Routine {
	return func(t *Task) error {
		if err := t.Wait(120); err != nil {
			return err
		}
		ring := nonSpellRing
		ring.StaggerFrames = e.variant.RingStagger
		initial := e.pattern.RingAngle
		e.sched.Spawn("rotation", spinningRing(e, ring))
		e.sched.Spawn("clod", scatterPulse(e, nonSpellPulse, initial))
		e.sched.Spawn("motion", randomPatrol(e, nonSpellPatrol))
		return nil
	}
}

func spell1Main(e *Encounter) Routine {
	return func(t *Task) error {
		if err := t.Wait(180); err != nil {
			return err
		}
		e.sched.Spawn("mesh", laserMesh(e, spellMesh))
		e.sched.Spawn("aimed", aimedRingBurst(e, spellAimed))
		e.sched.Spawn("radial", radialMix(e, spellRadial))
		return nil
	}
}

func tshot1Main(e *Encounter) Routine {
	return func(t *Task) error {
		e.sched.Spawn("revolver", revolver(e, tshotRevolver))
		return nil
	}
}

var variants = map[string]Variant{
	VariantNonSpell1: {
		Name:               VariantNonSpell1,
		Health:             2000,
		IntroFrames:        300,
		ReducedDamageEnd:   300,
		ReducedDamageScale: 1,
		BossStart:          Spot{Y: BossStartY, Centered: true},
		BossPost:           Spot{Y: 120, Centered: true},
		PostSpeed:          BossEntrySpeed,
		PlayerStart:        Spot{Y: PlayerStartOffset, Centered: true, FromBottom: true},
		BossSize:           BossSize,
		PlayerSize:         PlayerSize,
		Main:               nonSpell1Main,
	},
	VariantSpell1: {
		Name:               VariantSpell1,
		Health:             4000,
		IntroFrames:        60,
		ReducedDamageEnd:   300,
		ReducedDamageScale: 1,
		IntroSound:         SoundEvent{Name: "spell_start", Volume: 50},
		BossStart:          Spot{Y: BossStartY, Centered: true},
		BossPost:           Spot{Y: 135, Centered: true},
		PostSpeed:          BossEntrySpeed,
		PlayerStart:        Spot{Y: PlayerStartOffset, Centered: true, FromBottom: true},
		BossSize:           BossSize,
		PlayerSize:         PlayerSize,
		Main:               spell1Main,
	},
	VariantTShot1: {
		Name:               VariantTShot1,
		Health:             2000,
		ReducedDamageScale: 1,
		BossStart:          Spot{X: 400, Y: 150},
		PlayerStart:        Spot{X: 400, Y: 500},
		BossSize:           60,
		PlayerSize:         40,
		Main:               tshot1Main,
	},
}

// ErrUnknownVariant is returned for a variant name that is not registered
var ErrUnknownVariant = fmt.Errorf("unknown variant")

// LookupVariant returns a copy of the named variant with any overrides from
// cfg applied.
func LookupVariant(name string, cfg *Config) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	if cfg != nil {
		if o, ok := cfg.Variants[name]; ok {
			v = o.apply(v)
		}
	}
	return v, nil
}

// VariantNames lists the registered variants in a stable order
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
