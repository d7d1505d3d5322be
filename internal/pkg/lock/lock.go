// Package lock provides in-process per-key locks. The engine keys them by
// company ID so a tick row and a player action on the same company never
// interleave inside one process.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex is a one-slot semaphore so acquisition can be cancelled.
type keyMutex struct {
	ch      chan struct{}
	holders int // goroutines holding or waiting
}

// KeyLock serializes work per int64 key.
type KeyLock struct {
	mu    sync.Mutex
	locks map[int64]*keyMutex
}

// NewKeyLock creates an empty KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[int64]*keyMutex)}
}

func (kl *KeyLock) acquire(key int64) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.holders++
	return m
}

func (kl *KeyLock) release(key int64, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m.holders--
	if m.holders == 0 {
		delete(kl.locks, key)
	}
}

// Lock blocks until key is held.
func (kl *KeyLock) Lock(key int64) {
	m := kl.acquire(key)
	m.ch <- struct{}{}
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (kl *KeyLock) Unlock(key int64) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-m.ch:
		kl.release(key, m)
	default:
	}
}

// TryLock acquires key without blocking.
func (kl *KeyLock) TryLock(key int64) bool {
	m := kl.acquire(key)
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		kl.release(key, m)
		return false
	}
}

// LockContext waits for key until ctx is done or timeout passes.
func (kl *KeyLock) LockContext(ctx context.Context, key int64, timeout time.Duration) error {
	m := kl.acquire(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.release(key, m)
		return ctx.Err()
	case <-timer.C:
		kl.release(key, m)
		return ErrLockTimeout
	}
}

// WithLock runs fn while holding key.
func (kl *KeyLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext runs fn while holding key, giving up after timeout.
func (kl *KeyLock) WithLockContext(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	if err := kl.LockContext(ctx, key, timeout); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// IsLocked reports whether key is currently held. The answer may be stale
// by the time the caller reads it.
func (kl *KeyLock) IsLocked(key int64) bool {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	return ok && len(m.ch) > 0
}

// Len returns the number of keys with holders or waiters.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
