package main

import (
	"context"
	"testing"
)

func stepBoss(s *Scheduler, b *Boss, frames int) {
	for i := 0; i < frames; i++ {
		s.Advance(FrameDuration)
		b.Integrate(FrameDuration.Seconds())
	}
}

func TestBossMoveToSnapsExactly(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()
	b := NewBoss(400, 60, 0, 2000, s)

	b.MoveTo(400, 120, 120) // 60px at 120px/s = 30 frames
	if !b.Moving() {
		t.Fatal("boss should be moving after MoveTo")
	}
	if b.VY != 120 || b.VX != 0 {
		t.Errorf("expected velocity (0,120), got (%f,%f)", b.VX, b.VY)
	}

	stepBoss(s, b, 29)
	if !b.Moving() {
		t.Fatal("boss arrived early")
	}
	stepBoss(s, b, 1)
	if b.Moving() {
		t.Fatal("boss should have arrived")
	}
	if b.X != 400 || b.Y != 120 {
		t.Errorf("expected exact snap to (400,120), got (%v,%v)", b.X, b.Y)
	}
	if b.VX != 0 || b.VY != 0 {
		t.Errorf("velocity should be zero after arrival, got (%f,%f)", b.VX, b.VY)
	}

	stepBoss(s, b, 10)
	if b.X != 400 || b.Y != 120 {
		t.Errorf("boss drifted after arrival: (%v,%v)", b.X, b.Y)
	}
}

func TestBossLatestMoveToWins(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()
	b := NewBoss(400, 100, 0, 2000, s)

	b.MoveTo(100, 100, 300) // 1s
	stepBoss(s, b, 10)
	b.MoveTo(500, 300, 300)

	stepBoss(s, b, 120)
	if b.X != 500 || b.Y != 300 {
		t.Errorf("expected boss at the second target (500,300), got (%v,%v)", b.X, b.Y)
	}
	if b.Moving() {
		t.Error("boss should be at rest")
	}
}

func TestBossMoveToCurrentPosition(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()
	b := NewBoss(200, 200, 0, 100, s)

	b.MoveTo(200, 200, 100)
	if b.VX != 0 || b.VY != 0 {
		t.Errorf("zero-length move should not set a velocity, got (%f,%f)", b.VX, b.VY)
	}
	stepBoss(s, b, 1)
	if b.X != 200 || b.Y != 200 {
		t.Errorf("boss moved on a zero-length transit: (%v,%v)", b.X, b.Y)
	}
}

func TestBossMoveToRejectsBadSpeed(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()
	b := NewBoss(0, 0, 0, 100, s)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero speed")
		}
	}()
	b.MoveTo(10, 10, 0)
}

func TestBossTakeDamage(t *testing.T) {
	b := NewBoss(0, 0, 0, 100, NewScheduler(context.Background()))

	if got := b.TakeDamage(40); got != 40 || b.Health != 60 {
		t.Errorf("expected 40 applied and 60 left, got %d / %d", got, b.Health)
	}
	if got := b.TakeDamage(-5); got != 0 || b.Health != 60 {
		t.Errorf("negative damage should be ignored, got %d / %d", got, b.Health)
	}
	if got := b.TakeDamage(100); got != 60 || b.Health != 0 {
		t.Errorf("damage should clamp at zero health, got %d / %d", got, b.Health)
	}

	b.Remove()
	if got := b.TakeDamage(10); got != 0 {
		t.Errorf("removed boss should take no damage, got %d", got)
	}
}

func TestBossDefaultsAndState(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()
	b := NewBoss(400, 60, 0, 2000, s)
	if b.Size != BossSize {
		t.Errorf("expected default size %v, got %v", BossSize, b.Size)
	}

	b.MoveTo(400, 120, BossEntrySpeed)
	st := b.ToState()
	if !st.Moving || !st.Alive || st.HP != 2000 || st.MaxHP != 2000 {
		t.Errorf("unexpected state %+v", st)
	}

	b.Remove()
	stepBoss(s, b, 60)
	if b.Y != 60 {
		t.Errorf("removed boss must not snap to its target, got y=%v", b.Y)
	}
}
