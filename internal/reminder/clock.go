package reminder

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock schedules a repeating callback. The returned cancel func may be
// called any number of times.
type Clock interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// TickerClock runs callbacks from a ticker goroutine.
type TickerClock struct {
	clock clock.Clock
}

// NewTickerClock returns a TickerClock on c, or on the wall clock if c is nil.
func NewTickerClock(c clock.Clock) *TickerClock {
	if c == nil {
		c = clock.New()
	}
	return &TickerClock{clock: c}
}

func (t *TickerClock) Every(d time.Duration, fn func()) func() {
	ticker := t.clock.Ticker(d)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualClock fires its callbacks only when Fire is called. The terminal UI
// drives it from its own tick so that countdown mutation stays on the event
// loop.
type ManualClock struct {
	mu      sync.Mutex
	nextID  int
	entries []manualEntry
}

type manualEntry struct {
	id int
	fn func()
}

func (m *ManualClock) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.entries = append(m.entries, manualEntry{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.entries {
			if e.id == id {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				return
			}
		}
	}
}

// Fire invokes every registered callback once, in registration order.
func (m *ManualClock) Fire() {
	m.mu.Lock()
	fns := make([]func(), len(m.entries))
	for i, e := range m.entries {
		fns[i] = e.fn
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Pending returns the number of registered callbacks.
func (m *ManualClock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
