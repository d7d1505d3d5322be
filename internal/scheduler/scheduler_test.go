package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"tycoon-engine/internal/pkg/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// ============================================================================
// Gate
// ============================================================================

func TestGate_IsDue(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	g := NewGate(NewMemoryStore(), clk)

	due, err := g.IsDue(ctx, "payroll", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, due, "a kind that never ran is due")

	require.NoError(t, g.MarkRun(ctx, "payroll", t0))
	due, err = g.IsDue(ctx, "payroll", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, due)

	clk.Advance(5 * time.Minute)
	due, err = g.IsDue(ctx, "payroll", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestGate_TryClaimOncePerInterval(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	g := NewGate(NewMemoryStore(), clk)

	ok, err := g.TryClaim(ctx, "employees", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.TryClaim(ctx, "employees", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Advance(59 * time.Second)
	ok, err = g.TryClaim(ctx, "employees", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Advance(time.Second)
	ok, err = g.TryClaim(ctx, "employees", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGate_ConcurrentClaimsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		callers := rapid.IntRange(2, 16).Draw(t, "callers")
		g := NewGate(NewMemoryStore(), clock.NewFake(t0))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := g.TryClaim(context.Background(), "levels", time.Minute); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Fatalf("expected exactly one claim, got %d", wins.Load())
		}
	})
}

// ============================================================================
// Registry
// ============================================================================

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context) error { return nil }

	assert.ErrorIs(t, r.Register(Job{Kind: "a", Interval: time.Minute}), ErrNilJob)
	assert.ErrorIs(t, r.Register(Job{Interval: time.Minute, Run: noop}), ErrEmptyKind)
	assert.ErrorIs(t, r.Register(Job{Kind: "a", Run: noop}), ErrInvalidInterval)

	require.NoError(t, r.Register(Job{Kind: "b", Interval: time.Minute, Run: noop}))
	require.NoError(t, r.Register(Job{Kind: "a", Interval: time.Minute, Run: noop}))
	require.NoError(t, r.Register(Job{Kind: "a", Interval: time.Hour, Run: noop}))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"a", "b"}, r.Kinds())
	j, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, time.Hour, j.Interval)

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.Equal(t, 1, r.Count())
}

func TestDiscard(t *testing.T) {
	run := Discard(func(context.Context) (int, error) { return 3, errors.New("boom") })
	assert.EqualError(t, run(context.Background()), "boom")
}

// ============================================================================
// Coordinator
// ============================================================================

type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counter) job(kind string, interval time.Duration, err error) Job {
	return Job{Kind: kind, Interval: interval, Run: func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.calls == nil {
			c.calls = make(map[string]int)
		}
		c.calls[kind]++
		return err
	}}
}

func (c *counter) get(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[kind]
}

func TestCoordinator_RunDueIsIdempotentAtTheSameInstant(t *testing.T) {
	clk := clock.NewFake(t0)
	reg := NewRegistry()
	var c counter
	require.NoError(t, reg.Register(c.job("employees", time.Minute, nil)))
	require.NoError(t, reg.Register(c.job("payroll", 5*time.Minute, nil)))

	coord := NewCoordinator(NewGate(NewMemoryStore(), clk), reg, clk, Options{})
	ctx := context.Background()

	rep := coord.RunDue(ctx)
	assert.True(t, rep.OK())
	assert.Equal(t, []string{"employees", "payroll"}, rep.Ran)
	assert.NotEmpty(t, rep.RunID)

	rep = coord.RunDue(ctx)
	assert.Empty(t, rep.Ran)
	assert.ElementsMatch(t, []string{"employees", "payroll"}, rep.NotDue)

	clk.Advance(time.Minute)
	rep = coord.RunDue(ctx)
	assert.Equal(t, []string{"employees"}, rep.Ran)

	assert.Equal(t, 2, c.get("employees"))
	assert.Equal(t, 1, c.get("payroll"))
}

func TestCoordinator_FailureIsIsolatedAndConsumed(t *testing.T) {
	clk := clock.NewFake(t0)
	reg := NewRegistry()
	var c counter
	boom := errors.New("missing balance constant")
	require.NoError(t, reg.Register(c.job("market-events", time.Minute, boom)))
	require.NoError(t, reg.Register(c.job("levels", time.Minute, nil)))
	require.NoError(t, reg.Register(Job{Kind: "panics", Interval: time.Minute, Run: func(context.Context) error {
		panic("bad row")
	}}))

	coord := NewCoordinator(NewGate(NewMemoryStore(), clk), reg, clk, Options{})
	rep := coord.RunDue(context.Background())

	assert.False(t, rep.OK())
	assert.ErrorIs(t, rep.Failed["market-events"], boom)
	assert.Error(t, rep.Failed["panics"])
	assert.NotContains(t, rep.Failed, "levels")
	assert.Equal(t, 1, c.get("levels"))

	// a failed run still used its interval
	rep = coord.RunDue(context.Background())
	assert.Empty(t, rep.Ran)
	assert.Equal(t, 1, c.get("market-events"))
}

func TestCoordinator_ClaimErrorIsReported(t *testing.T) {
	clk := clock.NewFake(t0)
	reg := NewRegistry()
	var c counter
	require.NoError(t, reg.Register(c.job("employees", time.Minute, nil)))

	coord := NewCoordinator(NewGate(failingStore{}, clk), reg, clk, Options{})
	rep := coord.RunDue(context.Background())

	assert.Contains(t, rep.Failed, "employees")
	assert.Zero(t, c.get("employees"))
}

type failingStore struct{}

func (failingStore) LastRun(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("connection refused")
}
func (failingStore) Mark(context.Context, string, time.Time) error {
	return errors.New("connection refused")
}
func (failingStore) TryClaim(context.Context, string, time.Time, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestCoordinator_TimeoutReachesJob(t *testing.T) {
	clk := clock.NewFake(t0)
	reg := NewRegistry()
	require.NoError(t, reg.Register(Job{Kind: "slow", Interval: time.Minute, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	coord := NewCoordinator(NewGate(NewMemoryStore(), clk), reg, clk, Options{Timeout: 20 * time.Millisecond})
	rep := coord.RunDue(context.Background())
	assert.ErrorIs(t, rep.Failed["slow"], context.DeadlineExceeded)
}

func TestCoordinator_StartStopsOnCancel(t *testing.T) {
	clk := clock.NewFake(t0)
	reg := NewRegistry()
	var c counter
	require.NoError(t, reg.Register(c.job("employees", time.Minute, nil)))

	coord := NewCoordinator(NewGate(NewMemoryStore(), clk), reg, clk, Options{Every: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coord.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.get("employees") == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	// the fake clock never moved, so later ticks found nothing due
	assert.Equal(t, 1, c.get("employees"))
}
