package lock

import (
	"sync"
)

// KeyedLock grants mutually exclusive access to a logical resource
// identified by an integer key (the point account ID). Acquire blocks the
// calling goroutine until the key is free, then returns a release function.
// The release function is one-shot: calling it again is a no-op. Waiters for
// the same key are served in the order their Acquire calls arrived; distinct
// keys never block each other.
type KeyedLock interface {
	Acquire(key int64) (release func())
}

// QueueLock implements KeyedLock with an explicit waiter queue per key.
// Entries are created lazily on first Acquire and removed again once a key
// is released with nobody waiting, so the map only tracks contended keys.
type QueueLock struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	locked  bool
	waiters []chan struct{}
}

func NewQueueLock() *QueueLock {
	return &QueueLock{
		entries: make(map[int64]*lockEntry),
	}
}

func (l *QueueLock) Acquire(key int64) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}

	if !e.locked {
		e.locked = true
		l.mu.Unlock()
		return l.releaseOnce(key)
	}

	// Key is held; queue up and wait for the hand-off.
	wait := make(chan struct{})
	e.waiters = append(e.waiters, wait)
	l.mu.Unlock()

	<-wait
	return l.releaseOnce(key)
}

func (l *QueueLock) releaseOnce(key int64) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.release(key)
		})
	}
}

// release hands the key to the oldest waiter, or frees it entirely. The
// dequeue and the wake-up happen under mu, so ownership transfers atomically
// and the entry stays locked for the new holder.
func (l *QueueLock) release(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return
	}

	if len(e.waiters) == 0 {
		delete(l.entries, key)
		return
	}

	next := e.waiters[0]
	e.waiters = e.waiters[1:]
	close(next)
}

// Len reports how many keys currently have an entry. Used by tests to check
// that idle entries are evicted.
func (l *QueueLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
