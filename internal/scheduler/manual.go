package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by virtual time. Callbacks run
// on the goroutine calling RunPending, Advance or Settle; work started with Go
// runs on real goroutines and is awaited by Settle.
type Manual struct {
	mu       sync.Mutex
	cond     *sync.Cond
	now      time.Time
	queue    []func()
	timers   []*manualTimer
	seq      uint64
	inflight int
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	m := &Manual{now: start}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post enqueues fn.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	m.cond.Broadcast()
}

// AfterFunc registers fn to run when virtual time reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, due: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Go runs work on a goroutine and tracks it until it returns.
func (m *Manual) Go(work func()) {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
	go func() {
		defer func() {
			m.mu.Lock()
			m.inflight--
			m.mu.Unlock()
			m.cond.Broadcast()
		}()
		work()
	}()
}

// RunPending runs queued callbacks, including ones they post, and returns
// how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Settle waits for all off-loop work and runs every callback it posts.
func (m *Manual) Settle() {
	for {
		m.RunPending()
		m.mu.Lock()
		for m.inflight > 0 && len(m.queue) == 0 {
			m.cond.Wait()
		}
		done := m.inflight == 0 && len(m.queue) == 0
		m.mu.Unlock()
		if done {
			return
		}
	}
}

// Advance moves virtual time forward by d, firing due timers in order and
// running queued callbacks after each. It does not wait for off-loop work.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	m.RunPending()
	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.due
		m.removeTimer(t)
		m.mu.Unlock()

		t.fn()
		m.RunPending()
	}
}

// PendingTimers returns the number of timers not yet fired or stopped.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// NextTimer returns the delay until the earliest pending timer.
func (m *Manual) NextTimer() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return 0, false
	}
	m.sortTimers()
	return m.timers[0].due.Sub(m.now), true
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	m.sortTimers()
	if m.timers[0].due.After(target) {
		return nil
	}
	return m.timers[0]
}

func (m *Manual) sortTimers() {
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due.Before(m.timers[j].due)
	})
}

func (m *Manual) removeTimer(t *manualTimer) bool {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	m   *Manual
	due time.Time
	seq uint64
	fn  func()
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.m.removeTimer(t)
}
