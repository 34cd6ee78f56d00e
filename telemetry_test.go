package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
)

func TestRunBenchSamples(t *testing.T) {
	var rows []TelemetryRow
	res, err := RunBench(mustVariant(t, VariantNonSpell1), BenchOptions{
		Frames:         600,
		Seed:           5,
		IntervalFrames: 60,
	}, func(r TelemetryRow) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected one row per 60 frames (10), got %d", len(rows))
	}
	if rows[0].Frame != 60 || rows[9].Frame != 600 {
		t.Errorf("unexpected sample frames %d..%d", rows[0].Frame, rows[9].Frame)
	}
	if rows[0].Projectiles != 0 {
		t.Errorf("nothing should fire before frame 120, got %d at frame %d", rows[0].Projectiles, rows[0].Frame)
	}
	if rows[1].Projectiles == 0 {
		t.Errorf("patterns should be firing at frame 120")
	}
	if rows[4].Phase != "intro" || rows[5].Phase != "active" {
		t.Errorf("expected intro at frame 300 and active at 360, got %s %s", rows[4].Phase, rows[5].Phase)
	}
	if res.Frames != 600 || res.Spawned == 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunBenchDefeat(t *testing.T) {
	var last TelemetryRow
	res, err := RunBench(mustVariant(t, VariantNonSpell1), BenchOptions{
		Frames:       3600,
		Seed:         1,
		DamagePerSec: 500,
	}, func(r TelemetryRow) error {
		last = r
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	// 2000 HP at 500 per second falls on frame 240
	if res.Frames != 240 || res.Damage != 2000 {
		t.Errorf("expected defeat on frame 240 with 2000 damage, got %+v", res)
	}
	if last.Phase != "defeated" || last.BossHP != 0 || last.Projectiles != 0 {
		t.Errorf("last sample should show the cleared stage, got %+v", last)
	}
}

func TestWriteBenchCSV(t *testing.T) {
	dir := t.TempDir()
	path, _, err := WriteBench(dir, mustVariant(t, VariantTShot1), BenchOptions{
		Frames: 180,
		Seed:   9,
	})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "TShot1-9.csv" {
		t.Errorf("unexpected file name %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var rows []TelemetryRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("reading telemetry back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (one per second), got %d", len(rows))
	}
	if rows[0].BossX != 400 || rows[0].BossY != 150 {
		t.Errorf("unexpected boss position in first row: %+v", rows[0])
	}

	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "frame,"); n != 1 {
		t.Errorf("header should be written once, found %d", n)
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "id,session_id,variant") {
		t.Errorf("empty export should still carry the header, got %q", buf.String())
	}

	buf.Reset()
	err := WriteHistoryCSV(&buf, []EncounterRecord{
		{ID: 1, SessionID: "s", Variant: VariantSpell1, Seconds: 42.5, Pilot: "ace"},
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "Spell1") || !strings.Contains(lines[1], "ace") {
		t.Errorf("unexpected row %q", lines[1])
	}
}
