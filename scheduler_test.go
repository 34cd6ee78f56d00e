package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFrameDurationNeverShort(t *testing.T) {
	for _, n := range []int{1, 60, 120, 300, 3600} {
		want := time.Duration(n) * time.Second / TickRate
		if got := Frames(n); got < want {
			t.Errorf("Frames(%d) = %v, want >= %v", n, got, want)
		}
	}
}

func TestSpawnRunsUntilFirstSuspension(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	var steps []string
	s.Spawn("a", func(task *Task) error {
		steps = append(steps, "before")
		if err := task.Wait(1); err != nil {
			return err
		}
		steps = append(steps, "after")
		return nil
	})

	if len(steps) != 1 || steps[0] != "before" {
		t.Fatalf("expected body to run to its first wait, got %v", steps)
	}
	if s.Live() != 1 {
		t.Fatalf("expected 1 live routine, got %d", s.Live())
	}

	s.Advance(FrameDuration)
	if len(steps) != 2 {
		t.Fatalf("expected routine to resume after one frame, got %v", steps)
	}
	if s.Live() != 0 {
		t.Errorf("expected finished routine to leave the live set, got %d", s.Live())
	}
}

func TestWaitResumesOnExactFrame(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	resumed := -1
	frame := 0
	s.Spawn("w", func(task *Task) error {
		if err := task.Wait(33); err != nil {
			return err
		}
		resumed = frame
		return nil
	})

	for frame = 1; frame <= 40 && resumed < 0; frame++ {
		s.Advance(FrameDuration)
	}
	if resumed != 33 {
		t.Errorf("expected resume on frame 33, got %d", resumed)
	}
}

func TestReadinessOrder(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	var order []string
	spawn := func(name string, frames int) {
		s.Spawn(name, func(task *Task) error {
			if err := task.Wait(frames); err != nil {
				return err
			}
			order = append(order, name)
			return nil
		})
	}
	spawn("late", 3)
	spawn("first", 2)
	spawn("second", 2)

	s.Advance(Frames(5))
	want := []string{"first", "second", "late"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestWaitZeroDefersToNextAdvance(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	count := 0
	s.Spawn("loop", func(task *Task) error {
		for {
			count++
			if err := task.Wait(0); err != nil {
				return err
			}
		}
	})

	for i := 0; i < 5; i++ {
		s.Advance(FrameDuration)
	}
	if count != 6 {
		t.Errorf("expected one resume per Advance (6 runs), got %d", count)
	}
}

func TestSpawnFromRoutine(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	childRan := false
	s.Spawn("parent", func(task *Task) error {
		if err := task.Wait(1); err != nil {
			return err
		}
		s.Spawn("child", func(*Task) error {
			childRan = true
			return nil
		})
		return nil
	})

	s.Advance(FrameDuration)
	if !childRan {
		t.Error("child spawned from a routine should run immediately")
	}
	if s.Live() != 0 {
		t.Errorf("expected no live routines, got %d", s.Live())
	}
}

func TestStopCancelsParkedRoutines(t *testing.T) {
	s := NewScheduler(context.Background())

	var errs []error
	for i := 0; i < 3; i++ {
		s.Spawn("forever", func(task *Task) error {
			err := task.Wait(1000)
			errs = append(errs, err)
			return err
		})
	}
	s.Stop()

	if s.Live() != 0 {
		t.Fatalf("expected every routine to exit, %d still live", s.Live())
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 cancelled waits, got %d", len(errs))
	}
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	}
	if !s.Stopped() {
		t.Error("scheduler should report stopped")
	}
}

func TestStopIsTerminal(t *testing.T) {
	s := NewScheduler(context.Background())
	s.Stop()

	ran := false
	task := s.Spawn("late", func(*Task) error {
		ran = true
		return nil
	})
	if ran {
		t.Error("routine spawned after Stop must not run")
	}
	if !task.Done() || !errors.Is(task.Err(), context.Canceled) {
		t.Errorf("expected done task with context.Canceled, got done=%v err=%v", task.Done(), task.Err())
	}

	fired := false
	timer := s.After(0, func() { fired = true })
	s.Advance(FrameDuration)
	if fired || timer.Pending() {
		t.Error("timer scheduled after Stop must never fire")
	}
	if s.Now() != 0 {
		t.Errorf("Advance after Stop should not move the clock, got %v", s.Now())
	}
}

func TestAfterAndTimerStop(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	var fired []string
	s.After(Frames(2), func() { fired = append(fired, "kept") })
	cancelled := s.After(Frames(1), func() { fired = append(fired, "stopped") })

	if !cancelled.Stop() {
		t.Error("Stop on a pending timer should report true")
	}
	if cancelled.Stop() {
		t.Error("second Stop should report false")
	}

	s.Advance(FrameDuration)
	if len(fired) != 0 {
		t.Fatalf("nothing should fire after one frame, got %v", fired)
	}
	s.Advance(FrameDuration)
	if len(fired) != 1 || fired[0] != "kept" {
		t.Errorf("expected only the kept timer to fire, got %v", fired)
	}

	var nilTimer *Timer
	if nilTimer.Stop() || nilTimer.Pending() {
		t.Error("nil timer should be inert")
	}
}

func TestRoutinePanicPropagates(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	s.Spawn("bad", func(task *Task) error {
		if err := task.Wait(1); err != nil {
			return err
		}
		panic("boom")
	})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic from routine")
		}
		if !strings.Contains(r.(string), "bad") {
			t.Errorf("panic should name the routine, got %v", r)
		}
	}()
	s.Advance(FrameDuration)
}

func TestSleepUsesSimulatedTime(t *testing.T) {
	s := NewScheduler(context.Background())
	defer s.Stop()

	done := false
	s.Spawn("sleeper", func(task *Task) error {
		if err := task.Sleep(500 * time.Millisecond); err != nil {
			return err
		}
		done = true
		return nil
	})

	for i := 0; i < 29; i++ {
		s.Advance(FrameDuration)
	}
	if done {
		t.Fatal("sleeper woke before 500ms of simulated time")
	}
	s.Advance(FrameDuration)
	if !done {
		t.Errorf("sleeper should wake after 30 frames (%v)", s.Now())
	}
}
