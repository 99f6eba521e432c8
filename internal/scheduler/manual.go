package scheduler

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler for tests. Queued tasks run only when
// RunPending or Advance is called, and its clock only moves on Advance.
type Manual struct {
	now    time.Time
	tasks  []func()
	timers []manualTimer
	seq    uint64
}

type manualTimer struct {
	at  time.Time
	seq uint64
	f   func()
}

// NewManual returns a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Asap implements Scheduler.
func (m *Manual) Asap(f func()) {
	m.tasks = append(m.tasks, f)
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, f func()) {
	if d <= 0 {
		m.Asap(f)
		return
	}
	m.seq++
	m.timers = append(m.timers, manualTimer{at: m.now.Add(d), seq: m.seq, f: f})
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	return m.now
}

// Pending returns the number of queued tasks and pending timers.
func (m *Manual) Pending() (tasks, timers int) {
	return len(m.tasks), len(m.timers)
}

// RunPending runs queued tasks in FIFO order, including tasks queued while
// running, until the queue is empty. It returns the number of tasks run.
func (m *Manual) RunPending() int {
	n := 0
	for len(m.tasks) > 0 {
		f := m.tasks[0]
		m.tasks = m.tasks[1:]
		f()
		n++
	}
	return n
}

// Advance moves the clock forward by d, firing every timer whose deadline is
// reached in deadline order. Queued tasks are drained before the clock moves
// and after each timer fires.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.RunPending()
	for len(m.timers) > 0 && !m.timers[0].at.After(target) {
		t := m.timers[0]
		m.timers = m.timers[1:]
		m.now = t.at
		t.f()
		m.RunPending()
	}
	m.now = target
	m.RunPending()
}
