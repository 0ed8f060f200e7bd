// Package mainloop provides the single serialized execution context on which
// all hotkey state is mutated.
//
// OS callbacks arrive on arbitrary threads. They hand work to the loop with
// Post, which never blocks; the loop runs each function in FIFO order on one
// goroutine. Deferred work is scheduled with AfterFunc and is cancellable
// without races: a timer that has already been queued when Stop is called
// observes the cancellation on the loop and does nothing.
package mainloop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("mainloop: closed")

// Executor is the contract every loop-bound component depends on.
type Executor interface {
	// Post schedules fn to run on the loop. It never blocks.
	Post(fn func())
	// Now returns the monotonic time elapsed since the executor was created.
	Now() time.Duration
	// AfterFunc runs fn on the loop once d has elapsed, unless stopped.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable deferred callback.
type Timer interface {
	// Stop cancels the timer. It must be called from the loop.
	Stop()
}

// Loop is the production Executor.
type Loop struct {
	start time.Time

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}

	onPanic func(v any, stack []byte)
}

// New creates a loop. Call Run to start draining it.
func New() *Loop {
	return &Loop{
		start: time.Now(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// OnPanic sets a function that receives panics recovered from posted work,
// in addition to the error log. Call before Run.
func (l *Loop) OnPanic(fn func(v any, stack []byte)) { l.onPanic = fn }

// Now implements Executor using the monotonic clock reading carried by time.Time.
func (l *Loop) Now() time.Duration {
	return time.Since(l.start)
}

// Post implements Executor.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc implements Executor.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	return t
}

// Run drains the loop until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		if closed {
			return ErrClosed
		}

		for _, fn := range batch {
			l.runGuarded(fn)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Flush blocks until every function queued before the call has run, or the
// loop is closed. It must not be called from the loop itself.
func (l *Loop) Flush() {
	flushed := make(chan struct{})
	l.Post(func() { close(flushed) })

	select {
	case <-flushed:
	case <-l.done:
	}
}

// Close stops the loop. Pending work is dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type loopTimer struct {
	timer *time.Timer
	// stopped is only read and written on the loop.
	stopped bool
}

func (t *loopTimer) Stop() {
	t.stopped = true
	t.timer.Stop()
}

// runGuarded runs fn, recovering a panic so the loop keeps draining.
func (l *Loop) runGuarded(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			slog.Error("mainloop: recovered panic in posted function",
				"panic", r, "stack", string(stack))
			if l.onPanic != nil {
				l.onPanic(r, stack)
			}
		}
	}()
	fn()
}
