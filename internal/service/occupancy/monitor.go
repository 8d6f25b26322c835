// Package occupancy holds the canonical per-zone occupancy state shared by the
// capture loop (writer) and the alert controller (reader).
package occupancy

import (
	"errors"
	"fmt"
	"sync"
)

// ErrContractViolation marks a caller bug, such as an occupancy vector whose
// length differs from the zone count. It is not recoverable at runtime.
var ErrContractViolation = errors.New("contract violation")

// State is one occupancy flag per zone, in zone order.
type State []bool

// AllEmpty reports whether no zone is occupied. An empty State is all empty.
func (s State) AllEmpty() bool {
	for _, occupied := range s {
		if occupied {
			return false
		}
	}
	return true
}

// Occupied returns the number of occupied zones.
func (s State) Occupied() int {
	n := 0
	for _, occupied := range s {
		if occupied {
			n++
		}
	}
	return n
}

// Equal reports whether both states hold the same flags.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Monitor owns the occupancy state. Update replaces all flags at once and
// Snapshot returns a private copy, so readers never see a half-written vector.
type Monitor struct {
	mu      sync.RWMutex
	state   State
	version uint64
}

// New creates a Monitor for n zones, all initially empty.
func New(n int) *Monitor {
	return &Monitor{state: make(State, n)}
}

// Update replaces the whole state with next. A vector of the wrong length is
// rejected with ErrContractViolation and the previous state is kept.
func (m *Monitor) Update(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(next) != len(m.state) {
		return fmt.Errorf("%w: occupancy vector has %d entries, expected %d", ErrContractViolation, len(next), len(m.state))
	}

	copy(m.state, next)
	m.version++
	return nil
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(State, len(m.state))
	copy(out, m.state)
	return out
}

// Version returns the number of completed updates.
func (m *Monitor) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Len returns the fixed zone count.
func (m *Monitor) Len() int {
	return len(m.state)
}
