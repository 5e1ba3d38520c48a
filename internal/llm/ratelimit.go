package llm

import (
	"sync"
	"time"
)

// DefaultMinInterval is the minimum spacing between admitted completion requests.
const DefaultMinInterval = 2 * time.Second

// IntervalGate admits at most one call per interval and refuses the rest.
// It never queues or waits: a refused call is simply skipped by the caller.
type IntervalGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewIntervalGate returns a gate; interval <= 0 admits everything.
func NewIntervalGate(interval time.Duration) *IntervalGate {
	return &IntervalGate{interval: interval, now: time.Now}
}

// Allow reports whether a call may proceed now and, if so, records it.
func (g *IntervalGate) Allow() bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false
	}
	g.last = now
	return true
}

// Reset forgets the last admitted call.
func (g *IntervalGate) Reset() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.last = time.Time{}
	g.mu.Unlock()
}
