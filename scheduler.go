package main

import (
	"container/heap"
	"context"
	"fmt"
	"time"
)

const (
	TickRate       = 60 // simulation frames per second
	BroadcastRate  = 30 // snapshots per second
	BroadcastEvery = TickRate / BroadcastRate

	// FrameDuration is one frame-equivalent of simulated time, rounded up to
	// the nanosecond so that N frames is never shorter than N*1000/60 ms.
	FrameDuration = (time.Second + TickRate - 1) / TickRate
)

// Frames converts a frame-equivalent count into simulated time.
func Frames(n int) time.Duration {
	return time.Duration(n) * FrameDuration
}

// Routine is the body of a cooperative task. It runs until it returns or
// until a suspension point reports cancellation.
type Routine func(t *Task) error

// Task is one cooperative routine owned by a Scheduler. Only the routine's own
// body may call Wait or Sleep.
type Task struct {
	name  string
	sched *Scheduler

	resume chan struct{} // scheduler -> routine
	yield  chan struct{} // routine -> scheduler

	done     bool
	err      error
	panicked any
}

// Name returns the routine name given to Spawn
func (t *Task) Name() string { return t.name }

// Done reports whether the routine body has returned
func (t *Task) Done() bool { return t.done }

// Err returns the value the routine returned, if it has finished
func (t *Task) Err() error { return t.err }

// Wait suspends the routine for n frame-equivalents of simulated time.
func (t *Task) Wait(n int) error {
	return t.Sleep(Frames(n))
}

// Sleep suspends the routine until at least d of simulated time has elapsed.
// It returns the scheduler's cancellation error once Stop has been called;
// routines must return when that happens.
func (t *Task) Sleep(d time.Duration) error {
	s := t.sched
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if s.running != t {
		panic(fmt.Sprintf("scheduler: routine %q suspended from outside its body", t.name))
	}
	if d < 0 {
		d = 0
	}
	heap.Push(&s.queue, &wakeup{at: s.now + d, seq: s.nextSeq(), task: t})
	t.yield <- struct{}{}
	<-t.resume
	return s.ctx.Err()
}

func (t *Task) run(fn Routine) {
	<-t.resume
	defer func() {
		if r := recover(); r != nil {
			t.panicked = r
		}
		t.done = true
		t.yield <- struct{}{}
	}()
	t.err = fn(t)
}

// Timer is a one-shot callback scheduled on simulated time
type Timer struct {
	w *wakeup
}

// Stop cancels the timer. It reports whether the call prevented the callback
// from running.
func (t *Timer) Stop() bool {
	if t == nil || t.w.fired || t.w.cancelled {
		return false
	}
	t.w.cancelled = true
	return true
}

// Pending reports whether the callback has neither fired nor been stopped
func (t *Timer) Pending() bool {
	return t != nil && !t.w.fired && !t.w.cancelled
}

// wakeup is an entry in the scheduler's wait queue: either a parked routine
// or a timer callback.
type wakeup struct {
	at        time.Duration
	seq       uint64
	task      *Task
	fn        func()
	index     int
	fired     bool
	cancelled bool
}

// waitQueue implements heap.Interface ordered by wake time, then by the order
// entries were queued.
type waitQueue []*wakeup

func (q waitQueue) Len() int { return len(q) }

func (q waitQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q waitQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waitQueue) Push(x interface{}) {
	w := x.(*wakeup)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waitQueue) Pop() interface{} {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}

// Scheduler runs cooperative routines on a virtual clock. Routines execute on
// their own goroutines but hand control back and forth over channels, so at
// most one of them (or the Scheduler's caller) runs at any instant.
//
// A Scheduler is not safe for concurrent use; callers serialize Spawn,
// Advance and Stop.
type Scheduler struct {
	now     time.Duration
	seq     uint64
	queue   waitQueue
	ctx     context.Context
	cancel  context.CancelFunc
	live    map[*Task]struct{}
	running *Task
}

// NewScheduler creates a scheduler at simulated time zero. Cancelling ctx has
// the same effect on suspension points as calling Stop, but parked routines
// are only released by Stop.
func NewScheduler(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		live:   make(map[*Task]struct{}),
	}
}

// Now returns the elapsed simulated time
func (s *Scheduler) Now() time.Duration { return s.now }

// Live returns the number of routines that have not finished
func (s *Scheduler) Live() int { return len(s.live) }

// Stopped reports whether Stop has been called
func (s *Scheduler) Stopped() bool { return s.ctx.Err() != nil }

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// Spawn starts fn immediately and runs it until its first suspension point
// before returning. Spawning from inside another routine is allowed.
func (s *Scheduler) Spawn(name string, fn Routine) *Task {
	t := &Task{
		name:   name,
		sched:  s,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
	if err := s.ctx.Err(); err != nil {
		t.done = true
		t.err = err
		return t
	}
	s.live[t] = struct{}{}
	go t.run(fn)
	s.switchTo(t)
	return t
}

// After schedules fn to run once d of simulated time from now, during the
// Advance that reaches it.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	w := &wakeup{at: s.now + d, seq: s.nextSeq(), fn: fn}
	if s.ctx.Err() != nil {
		w.cancelled = true
		return &Timer{w: w}
	}
	if d < 0 {
		w.at = s.now
	}
	heap.Push(&s.queue, w)
	return &Timer{w: w}
}

// Advance moves simulated time forward by dt and resumes every routine and
// timer that became due, strictly one after another in readiness order.
// Entries that become due while this call runs wait for the next Advance.
func (s *Scheduler) Advance(dt time.Duration) {
	if s.running != nil {
		panic("scheduler: Advance called from inside a routine")
	}
	if s.ctx.Err() != nil {
		return
	}
	s.now += dt

	var due []*wakeup
	for len(s.queue) > 0 && s.queue[0].at <= s.now {
		due = append(due, heap.Pop(&s.queue).(*wakeup))
	}
	for _, w := range due {
		if s.ctx.Err() != nil {
			return
		}
		if w.cancelled {
			continue
		}
		w.fired = true
		if w.task != nil {
			s.switchTo(w.task)
		} else {
			w.fn()
		}
	}
}

// Stop cancels the scheduler: pending timers are dropped and every parked
// routine is resumed once so its suspension point returns context.Canceled.
func (s *Scheduler) Stop() {
	if s.running != nil {
		panic("scheduler: Stop called from inside a routine")
	}
	s.cancel()
	for _, w := range s.queue {
		w.cancelled = true
	}
	s.queue = nil
	for t := range s.live {
		s.switchTo(t)
	}
}

// switchTo hands control to t and blocks until t suspends or finishes.
func (s *Scheduler) switchTo(t *Task) {
	prev := s.running
	s.running = t
	t.resume <- struct{}{}
	<-t.yield
	s.running = prev

	if t.done {
		delete(s.live, t)
		if t.panicked != nil {
			panic(fmt.Sprintf("routine %q: %v", t.name, t.panicked))
		}
	}
}
