// Package game holds the pure state-advance rules of the tycoon simulation.
// Nothing here touches the database; services load rows, call these
// functions and persist the returned steps inside a transaction.
package game

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Row-level errors. Services log and skip rows that return them.
var (
	ErrEmployeeQuit      = errors.New("employee has quit")
	ErrProjectNotRunning = errors.New("project is not in progress")
	ErrProjectNotQueued  = errors.New("project is not queued")
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 10")
)

const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Rand is the random source used for bug and market event spawns.
// *rand.Rand satisfies it; tests pass a scripted source.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// LockedRand is a Rand safe for concurrent job kinds.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand creates a LockedRand seeded with seed.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a number in [0,1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Intn returns a number in [0,n).
func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// elapsedMinutes returns the minutes between from and to, capped to
// maxMinutes. A zero from or a clock going backwards yields 0.
func elapsedMinutes(from, to time.Time, maxMinutes float64) float64 {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return math.Min(to.Sub(from).Minutes(), maxMinutes)
}

// RowDue reports whether a row last advanced at last is due again at now.
// slack lets a row run slightly early to absorb scheduler jitter, so two
// claims of the same interval still cannot both advance it.
func RowDue(last *time.Time, now time.Time, interval time.Duration, slack float64) bool {
	if last == nil || last.IsZero() {
		return true
	}
	return now.Sub(*last) >= time.Duration(float64(interval)*slack)
}
