package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentCashSafetyProperty checks that concurrent read-modify-write
// cycles on one company under its lock match sequential execution.
func TestConcurrentCashSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(-1000, 100000).Draw(t, "initialCash")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		companyID := rapid.Int64Range(1, 1000000).Draw(t, "companyID")

		amounts := make([]int64, numOps)
		expected := initial
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		kl := NewKeyLock()
		cash := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = kl.WithLock(companyID, func() error {
					cash += amount
					return nil
				})
			}(amount)
		}
		wg.Wait()

		if cash != expected {
			t.Fatalf("cash mismatch: expected %d, got %d", expected, cash)
		}
		if kl.Len() != 0 {
			t.Fatalf("%d keys left after all holders released", kl.Len())
		}
	})
}

// TestIndependentKeysProperty checks that locks on different companies do
// not interfere.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := NewKeyLock()
		counters := make([]int, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(k int) {
					defer wg.Done()
					kl.Lock(int64(k))
					defer kl.Unlock(int64(k))
					counters[k]++
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if c != opsPerKey {
				t.Fatalf("key %d: expected %d ops, got %d", k, opsPerKey, c)
			}
		}
	})
}

// TestTryLockSingleHolderProperty checks that at most one concurrent
// TryLock holds a key at a time and the key is free afterwards.
func TestTryLockSingleHolderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")
		attempts := rapid.IntRange(5, 20).Draw(t, "attempts")

		kl := NewKeyLock()
		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(attempts)
		start := make(chan struct{})

		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if kl.TryLock(key) {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					kl.Unlock(key)
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() > 1 {
			t.Fatalf("%d concurrent holders", maxHolders.Load())
		}
		if !kl.TryLock(key) {
			t.Fatal("key should be free after all holders released")
		}
		kl.Unlock(key)
	})
}

func TestLockContext_Timeout(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock(1)
	defer kl.Unlock(1)

	err := kl.LockContext(context.Background(), 1, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.True(t, kl.IsLocked(1))
}

func TestLockContext_Cancelled(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock(1)
	defer kl.Unlock(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := kl.WithLockContext(ctx, 1, time.Second, func() error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLockContext_Runs(t *testing.T) {
	kl := NewKeyLock()
	ran := false
	err := kl.WithLockContext(context.Background(), 7, time.Second, func() error {
		ran = true
		assert.True(t, kl.IsLocked(7))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, kl.IsLocked(7))
	assert.Zero(t, kl.Len())
}
