// Package scheduler decides which job kinds are due and runs them.
package scheduler

import (
	"context"
	"sync"
	"time"

	"tycoon-engine/internal/pkg/clock"
)

// RunStore persists the last run time of each job kind.
// *repository.JobRunRepository is the PostgreSQL implementation.
type RunStore interface {
	LastRun(ctx context.Context, kind string) (time.Time, bool, error)
	Mark(ctx context.Context, kind string, at time.Time) error
	TryClaim(ctx context.Context, kind string, now time.Time, interval time.Duration) (bool, error)
}

// Gate is the once-per-interval check in front of every job kind.
type Gate struct {
	store RunStore
	clock clock.Clock
}

// NewGate creates a Gate over store.
func NewGate(store RunStore, c clock.Clock) *Gate {
	if c == nil {
		c = clock.Real{}
	}
	return &Gate{store: store, clock: c}
}

// IsDue reports whether kind last ran at least interval ago. A kind that
// never ran is due.
func (g *Gate) IsDue(ctx context.Context, kind string, interval time.Duration) (bool, error) {
	last, ok, err := g.store.LastRun(ctx, kind)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return g.clock.Now().Sub(last) >= interval, nil
}

// MarkRun records a run of kind at now.
func (g *Gate) MarkRun(ctx context.Context, kind string, now time.Time) error {
	return g.store.Mark(ctx, kind, now)
}

// TryClaim checks and marks kind in one atomic step. Exactly one of several
// concurrent callers gets true. The claim stands even if the run fails.
func (g *Gate) TryClaim(ctx context.Context, kind string, interval time.Duration) (bool, error) {
	return g.store.TryClaim(ctx, kind, g.clock.Now(), interval)
}

// MemoryStore is a RunStore for tests and single-process runs.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]time.Time)}
}

// LastRun implements RunStore.
func (m *MemoryStore) LastRun(_ context.Context, kind string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.runs[kind]
	return t, ok, nil
}

// Mark implements RunStore.
func (m *MemoryStore) Mark(_ context.Context, kind string, at time.Time) error {
	m.mu.Lock()
	m.runs[kind] = at
	m.mu.Unlock()
	return nil
}

// TryClaim implements RunStore.
func (m *MemoryStore) TryClaim(_ context.Context, kind string, now time.Time, interval time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.runs[kind]; ok && now.Sub(last) < interval {
		return false, nil
	}
	m.runs[kind] = now
	return true, nil
}
