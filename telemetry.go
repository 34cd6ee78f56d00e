package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
)

// TelemetryRow is one sample of a headless encounter run
type TelemetryRow struct {
	Frame       uint64  `csv:"frame"`
	Seconds     float64 `csv:"seconds"`
	Phase       string  `csv:"phase"`
	Projectiles int     `csv:"projectiles"`
	Lasers      int     `csv:"lasers"`
	Spawned     uint64  `csv:"spawned"`
	Bursts      int     `csv:"bursts"`
	BossX       float64 `csv:"boss_x"`
	BossY       float64 `csv:"boss_y"`
	BossHP      int     `csv:"boss_hp"`
	PlayerX     float64 `csv:"player_x"`
	PlayerY     float64 `csv:"player_y"`
}

// TelemetryWriter streams rows of one kind to a CSV writer, emitting the
// header only once.
type TelemetryWriter struct {
	out           io.Writer
	headerWritten bool
}

// NewTelemetryWriter writes CSV rows to out
func NewTelemetryWriter(out io.Writer) *TelemetryWriter {
	return &TelemetryWriter{out: out}
}

// Write appends rows
func (w *TelemetryWriter) Write(rows interface{}) error {
	if !w.headerWritten {
		if err := gocsv.Marshal(rows, w.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, w.out); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// BenchOptions configures a headless run
type BenchOptions struct {
	Frames         int
	Seed           int64
	IntervalFrames int // sample every N frames; 0 samples every second
	DamagePerSec   int // applied once per simulated second, 0 disables
	Intent         Intent
	Field          Playfield
	PlayerSpeed    float64
	PlayerSize     float64
}

// RunBench plays v without a network for opts.Frames frames or until the
// boss is defeated, calling sample for every telemetry row.
func RunBench(v Variant, opts BenchOptions, sample func(TelemetryRow) error) (EncounterResult, error) {
	interval := opts.IntervalFrames
	if interval <= 0 {
		interval = TickRate
	}

	enc := NewEncounter(v, EncounterOptions{
		Seed:        opts.Seed,
		Field:       opts.Field,
		PlayerSpeed: opts.PlayerSpeed,
		PlayerSize:  opts.PlayerSize,
		Log:         logger.WithField("mode", "bench"),
	})
	defer enc.Close()
	enc.Start()
	enc.SetIntent(opts.Intent)

	for f := 1; f <= opts.Frames && enc.Phase() != PhaseDefeated; f++ {
		enc.Step(FrameDuration)
		if opts.DamagePerSec > 0 && f%TickRate == 0 {
			enc.ApplyDamage(opts.DamagePerSec)
		}
		if f%interval == 0 || enc.Phase() == PhaseDefeated {
			if err := sample(telemetrySample(enc)); err != nil {
				return enc.Result(), err
			}
		}
	}
	return enc.Result(), nil
}

func telemetrySample(e *Encounter) TelemetryRow {
	projectiles, lasers := e.Counts()
	return TelemetryRow{
		Frame:       e.Frame(),
		Seconds:     round3(e.sched.Now().Seconds()),
		Phase:       e.Phase().String(),
		Projectiles: projectiles,
		Lasers:      lasers,
		Spawned:     e.shots.Spawned(),
		Bursts:      e.pattern.Bursts,
		BossX:       round1(e.boss.X),
		BossY:       round1(e.boss.Y),
		BossHP:      e.boss.Health,
		PlayerX:     round1(e.player.X),
		PlayerY:     round1(e.player.Y),
	}
}

// WriteBench runs a bench and writes its telemetry to
// dir/<variant>-<seed>.csv. It returns the file path.
func WriteBench(dir string, v Variant, opts BenchOptions) (string, EncounterResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", EncounterResult{}, fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.csv", v.Name, opts.Seed))
	f, err := os.Create(path)
	if err != nil {
		return "", EncounterResult{}, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := NewTelemetryWriter(f)
	res, err := RunBench(v, opts, func(row TelemetryRow) error {
		return w.Write([]TelemetryRow{row})
	})
	if err != nil {
		return path, res, err
	}
	logger.WithFields(logrus.Fields{
		"file":    path,
		"frames":  res.Frames,
		"spawned": res.Spawned,
	}).Info("bench written")
	return path, res, nil
}

// WriteHistoryCSV writes encounter records as CSV with a header row
func WriteHistoryCSV(out io.Writer, records []EncounterRecord) error {
	if records == nil {
		records = []EncounterRecord{}
	}
	if err := gocsv.Marshal(&records, out); err != nil {
		return fmt.Errorf("writing history csv: %w", err)
	}
	return nil
}
