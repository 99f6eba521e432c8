package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/watchgraph/internal/ctxlog"
)

// ErrLoopStopped is returned by Do and Drain once the loop has stopped running.
var ErrLoopStopped = errors.New("scheduler loop stopped")

// Loop is a single-goroutine event loop. All functions queued with Asap,
// After or Do run on the goroutine that called Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	timers  int
	running bool
	stopped bool
	busy    bool

	// idle is closed while the loop has nothing queued, running or pending
	// on a timer. Any new work replaces it with an open channel.
	idle   chan struct{}
	isIdle bool

	wake chan struct{}
	done chan struct{}
}

// NewLoop creates a loop that does nothing until Run is called.
func NewLoop() *Loop {
	idle := make(chan struct{})
	close(idle)
	return &Loop{
		idle:   idle,
		isIdle: true,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Asap implements Scheduler.
func (l *Loop) Asap(f func()) {
	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.leaveIdle()
	l.mu.Unlock()
	l.signal()
}

// leaveIdle and enterIdle must be called with mu held.
func (l *Loop) leaveIdle() {
	if l.isIdle {
		l.idle = make(chan struct{})
		l.isIdle = false
	}
}

func (l *Loop) enterIdle() {
	if !l.isIdle && len(l.queue) == 0 && l.timers == 0 && !l.busy {
		close(l.idle)
		l.isIdle = true
	}
}

// After implements Scheduler. The timer callback is posted back into the
// loop's queue rather than run on the timer goroutine.
func (l *Loop) After(d time.Duration, f func()) {
	if d <= 0 {
		l.Asap(f)
		return
	}
	l.mu.Lock()
	l.timers++
	l.leaveIdle()
	l.mu.Unlock()
	time.AfterFunc(d, func() {
		l.mu.Lock()
		l.timers--
		l.queue = append(l.queue, f)
		l.mu.Unlock()
		l.signal()
	})
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	l.mu.Lock()
	if l.running || l.stopped {
		l.mu.Unlock()
		return errors.New("scheduler loop already started")
	}
	l.running = true
	l.mu.Unlock()
	logger.Debug("Scheduler loop started.")

	defer func() {
		l.mu.Lock()
		l.running = false
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
		logger.Debug("Scheduler loop stopped.")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.busy = false
				l.enterIdle()
				l.mu.Unlock()
				break
			}
			f := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.busy = true
			l.mu.Unlock()
			f()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// Do runs f on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	l.Asap(func() {
		defer close(finished)
		f()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain blocks until the loop has no queued tasks, no running task and no
// pending timers.
func (l *Loop) Drain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()
	select {
	case <-idle:
		return nil
	default:
	}
	select {
	case <-idle:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
