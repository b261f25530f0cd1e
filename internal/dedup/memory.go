package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const sweepThreshold = 10000

// Memory remembers update ids in process memory for ttl
type Memory struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu   sync.Mutex
	seen map[int64]time.Time
}

// NewMemory creates an in-memory dedup store
func NewMemory(ttl time.Duration, clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		ttl:   ttl,
		clock: clock,
		seen:  make(map[int64]time.Time),
	}
}

// Seen reports whether updateID was marked and has not expired
func (m *Memory) Seen(_ context.Context, updateID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.seen[updateID]
	if !ok {
		return false, nil
	}
	if !m.clock.Now().Before(expires) {
		delete(m.seen, updateID)
		return false, nil
	}
	return true, nil
}

// Mark records updateID as processed
func (m *Memory) Mark(_ context.Context, updateID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if len(m.seen) >= sweepThreshold {
		for id, expires := range m.seen {
			if !now.Before(expires) {
				delete(m.seen, id)
			}
		}
	}
	m.seen[updateID] = now.Add(m.ttl)
	return nil
}

// Len returns the number of remembered ids, expired ones included
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
