package engine

import (
	"sync"

	"github.com/roach88/smartmake/internal/model"
)

// Ledger tracks free capacity per named resource pool and hands out
// all-or-nothing multi-resource grants.
//
// Acquisition is atomic with respect to other attempts: either every
// requested unit is available and all are decremented under one critical
// section, or nothing is taken. An instance therefore never holds a partial
// reservation while blocked on the rest, which is what would deadlock two
// instances contending for overlapping pools.
//
// Thread-safety model:
//   - TryAcquire / Release: safe from any goroutine
//   - Wait(): returns a coalescing signal channel, one pulse per release
type Ledger struct {
	mu     sync.Mutex
	free   map[string]int
	signal chan struct{} // buffered size 1, coalesces release signals
}

// Grant is a held multi-resource reservation. Release it exactly once.
type Grant struct {
	units map[string]int
}

// NewLedger creates a ledger with every pool at full capacity.
func NewLedger(resources []model.Resource) *Ledger {
	free := make(map[string]int, len(resources))
	for _, r := range resources {
		free[r.Name] = r.Capacity
	}
	return &Ledger{
		free:   free,
		signal: make(chan struct{}, 1),
	}
}

// TryAcquire attempts to reserve the requested units. Non-blocking: on any
// shortfall it takes nothing and returns (nil, false); the caller retries at
// the next scheduling opportunity. An empty request always succeeds.
func (l *Ledger) TryAcquire(requested map[string]int) (*Grant, bool) {
	if len(requested) == 0 {
		return &Grant{}, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for name, count := range requested {
		if l.free[name] < count {
			return nil, false
		}
	}
	units := make(map[string]int, len(requested))
	for name, count := range requested {
		l.free[name] -= count
		units[name] = count
	}
	return &Grant{units: units}, true
}

// Release restores the grant's units and wakes waiters. Releasing a nil or
// empty grant is a no-op; double release is a programming error the ledger
// does not detect.
func (l *Ledger) Release(g *Grant) {
	if g == nil || len(g.units) == 0 {
		return
	}

	l.mu.Lock()
	for name, count := range g.units {
		l.free[name] += count
	}
	g.units = nil
	l.mu.Unlock()

	// Non-blocking send: a full buffer already signals a pending retry.
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Wait returns the release signal channel. Use in a select alongside
// completion events to revisit resource-denied instances.
func (l *Ledger) Wait() <-chan struct{} {
	return l.signal
}

// Free returns the currently free units of a pool. Used for diagnostics
// and tests.
func (l *Ledger) Free(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.free[name]
}
