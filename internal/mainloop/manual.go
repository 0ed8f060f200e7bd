package mainloop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Executor driven by a virtual clock. Posted work
// and due timers only run inside Drain and Advance, so tests control exactly
// when every callback executes. Post may be called from any goroutine; the
// rest of the methods belong to the test goroutine.
type Manual struct {
	mu    sync.Mutex
	queue []func()

	now    time.Duration
	timers []*manualTimer
	seq    uint64
}

// NewManual returns a Manual executor at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Now implements Executor.
func (m *Manual) Now() time.Duration { return m.now }

// Post implements Executor.
func (m *Manual) Post(fn func()) {
	if fn != nil {
		m.mu.Lock()
		m.queue = append(m.queue, fn)
		m.mu.Unlock()
	}
}

// AfterFunc implements Executor.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{due: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Drain runs posted work until the queue is empty.
func (m *Manual) Drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and draining posted work after each one.
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceTo(m.now + d)
}

// AdvanceTo moves the clock to the absolute virtual time t.
func (m *Manual) AdvanceTo(t time.Duration) {
	m.Drain()
	for {
		next := m.nextDue(t)
		if next == nil {
			break
		}
		m.now = next.due
		next.fired = true
		next.fn()
		m.Drain()
	}
	if t > m.now {
		m.now = t
	}
}

// Pending returns the number of armed, unfired timers.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(limit time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.Slice(live, func(i, j int) bool {
		if live[i].due != live[j].due {
			return live[i].due < live[j].due
		}
		return live[i].seq < live[j].seq
	})
	if len(live) == 0 || live[0].due > limit {
		return nil
	}
	return live[0]
}

type manualTimer struct {
	due     time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() { t.stopped = true }
