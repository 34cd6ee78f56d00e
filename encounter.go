package main

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"
	"github.com/sirupsen/logrus"
)

// Phase is the encounter's lifecycle state
type Phase int

const (
	PhaseIntro Phase = iota
	PhaseActive
	PhaseDefeated
)

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhaseActive:
		return "active"
	case PhaseDefeated:
		return "defeated"
	}
	return "unknown"
}

// SoundSink receives fire-and-forget sound cues from the encounter
type SoundSink interface {
	PlaySound(ev SoundEvent)
}

// EncounterResult summarizes a finished encounter
type EncounterResult struct {
	Variant  string
	Seed     int64
	Frames   uint64
	Duration time.Duration
	Damage   int
	Bursts   int
	Spawned  uint64
}

// EncounterOptions configures NewEncounter. Zero values fall back to the
// defaults of the stage and the variant.
type EncounterOptions struct {
	Seed        int64
	Field       Playfield
	PlayerSpeed float64
	PlayerSize  float64 // 0 keeps the variant's size
	Sounds      SoundSink
	OnDefeat    func(EncounterResult)
	Log         *logrus.Entry
}

// Encounter owns one boss fight: the boss, the player, both entity pools,
// the scheduler with its routines and the state those routines share.
//
// An Encounter is not safe for concurrent use. The host serializes Step,
// SetIntent, ApplyDamage and Snapshot.
type Encounter struct {
	variant Variant
	field   Playfield
	seed    int64

	sched  *Scheduler
	world  *ecs.World
	shots  *ProjectilePool
	lasers *LaserPool
	boss   *Boss
	player *Player
	intent Intent

	rng     *rand.Rand
	pattern *patternState

	phase    Phase
	frame    uint64
	damage   int
	started  bool
	torndown bool

	sounds   SoundSink
	onDefeat func(EncounterResult)
	log      *logrus.Entry
}

// NewEncounter builds the world for v. Nothing runs until Start.
func NewEncounter(v Variant, opts EncounterOptions) *Encounter {
	field := opts.Field
	if field.Width <= 0 || field.Height <= 0 {
		field = DefaultPlayfield()
	}
	speed := opts.PlayerSpeed
	if speed <= 0 {
		speed = PlayerSpeed
	}
	entry := opts.Log
	if entry == nil {
		entry = logrus.NewEntry(logger)
	}

	world := ecs.NewWorld()
	sched := NewScheduler(context.Background())

	bx, by := v.BossStart.Resolve(field)
	px, py := v.PlayerStart.Resolve(field)
	size := opts.PlayerSize
	if size <= 0 {
		size = v.PlayerSize
	}
	if size <= 0 {
		size = PlayerSize
	}
	player := NewPlayer(px, py, size, speed)
	player.Clamp(field)

	return &Encounter{
		variant:  v,
		field:    field,
		seed:     opts.Seed,
		sched:    sched,
		world:    world,
		shots:    NewProjectilePool(world, field),
		lasers:   NewLaserPool(world),
		boss:     NewBoss(bx, by, v.BossSize, v.Health, sched),
		player:   player,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		pattern:  &patternState{},
		sounds:   opts.Sounds,
		onDefeat: opts.OnDefeat,
		log: entry.WithFields(logrus.Fields{
			"variant": v.Name,
			"seed":    opts.Seed,
		}),
	}
}

// Start runs the opening sequence: the boss heads for its post and the
// variant's main routine is spawned. Calling Start twice is a no-op.
func (e *Encounter) Start() {
	if e.started || e.torndown {
		return
	}
	e.started = true
	e.log.Info("encounter started")

	if e.variant.PostSpeed > 0 {
		x, y := e.variant.BossPost.Resolve(e.field)
		e.boss.MoveTo(x, y, e.variant.PostSpeed)
	}
	if e.variant.Main != nil {
		e.sched.Spawn("main", e.variant.Main(e))
	}
}

// Step advances the encounter by dt of simulated time. The order is fixed:
// routines and timers, player, boss, projectiles, lasers, phase counter,
// end condition.
func (e *Encounter) Step(dt time.Duration) {
	if e.phase == PhaseDefeated || e.torndown {
		return
	}
	secs := dt.Seconds()

	e.sched.Advance(dt)
	e.player.Move(e.intent, secs, e.field)
	e.boss.Integrate(secs)
	e.shots.Integrate(secs)
	e.lasers.Update(float64(dt) / float64(time.Millisecond))
	e.advancePhase()
	e.frame++

	if e.boss.Health <= 0 {
		e.defeat()
	}
}

// advancePhase counts the boss phase frames and moves Intro to Active once
// the intro window is over.
func (e *Encounter) advancePhase() {
	b, v := e.boss, e.variant
	if e.phase == PhaseIntro && b.Phase >= v.IntroFrames {
		e.phase = PhaseActive
		e.log.WithField("frame", e.frame).Info("encounter active")
		if v.IntroSound.Name != "" {
			e.playSound(v.IntroSound)
		}
	}
	if b.Phase < max(v.IntroFrames, v.ReducedDamageEnd) {
		b.Phase++
	}
}

// SetIntent replaces the movement intent applied on every following Step
func (e *Encounter) SetIntent(in Intent) {
	e.intent = in
}

// ApplyDamage lowers the boss's health and returns the damage applied. While
// the phase counter runs the variant's reduced-damage scale is used. Reaching
// zero defeats the encounter at once. Non-positive amounts and calls after the
// defeat are ignored.
func (e *Encounter) ApplyDamage(amount int) int {
	if amount <= 0 || e.phase == PhaseDefeated || e.torndown {
		return 0
	}
	v := e.variant
	if v.ReducedDamageScale != 1 && e.boss.Phase < v.ReducedDamageEnd {
		amount = int(math.Round(float64(amount) * v.ReducedDamageScale))
	}
	applied := e.boss.TakeDamage(amount)
	e.damage += applied
	if e.boss.Health <= 0 {
		e.defeat()
	}
	return applied
}

func (e *Encounter) defeat() {
	e.phase = PhaseDefeated
	e.teardown()
	res := e.Result()
	e.log.WithFields(logrus.Fields{
		"frames":  res.Frames,
		"damage":  res.Damage,
		"spawned": res.Spawned,
	}).Info("encounter defeated")
	if e.onDefeat != nil {
		e.onDefeat(res)
	}
}

// Close tears the encounter down without a defeat, e.g. when its session
// ends. It is safe to call more than once.
func (e *Encounter) Close() {
	if e.torndown {
		return
	}
	e.teardown()
	e.log.Info("encounter closed")
}

func (e *Encounter) teardown() {
	if e.torndown {
		return
	}
	e.torndown = true
	e.sched.Stop()
	e.shots.Clear()
	e.lasers.Clear()
	e.boss.Remove()
}

// Result reports the encounter's totals so far
func (e *Encounter) Result() EncounterResult {
	return EncounterResult{
		Variant:  e.variant.Name,
		Seed:     e.seed,
		Frames:   e.frame,
		Duration: e.sched.Now(),
		Damage:   e.damage,
		Bursts:   e.pattern.Bursts,
		Spawned:  e.shots.Spawned(),
	}
}

// Phase returns the current lifecycle state
func (e *Encounter) Phase() Phase { return e.phase }

// Frame returns the number of completed Steps
func (e *Encounter) Frame() uint64 { return e.frame }

// Counts returns the live projectile and laser counts
func (e *Encounter) Counts() (projectiles, lasers int) {
	return e.shots.Len(), e.lasers.Len()
}

// Snapshot captures the renderable state. Sounds are left to the host, which
// collects them through its SoundSink.
func (e *Encounter) Snapshot() Snapshot {
	return Snapshot{
		Tick:        e.frame,
		Phase:       e.phase.String(),
		Variant:     e.variant.Name,
		Boss:        e.boss.ToState(),
		Player:      e.player.ToState(),
		Projectiles: e.shots.States(),
		Lasers:      e.lasers.States(),
	}
}

// randRange returns a uniform value in [lo, hi)
func (e *Encounter) randRange(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}

// burst records one pattern emission and plays its sound cue
func (e *Encounter) burst(name string, n int, sound SoundEvent) {
	e.pattern.Bursts++
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		e.log.WithFields(logrus.Fields{
			"routine": name,
			"shots":   n,
			"frame":   e.frame,
		}).Debug("burst")
	}
	if sound.Name != "" {
		e.playSound(sound)
	}
}

func (e *Encounter) playSound(ev SoundEvent) {
	if e.sounds != nil {
		e.sounds.PlaySound(ev)
	}
}
