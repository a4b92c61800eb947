package lock

import (
	"sync"
)

// ChainLock implements KeyedLock by chaining arrivals per key: every
// Acquire swaps its own done channel in as the key's tail and then waits on
// the channel it displaced. Closing a holder's channel wakes exactly the
// next arrival, so ordering is the order in which Acquire calls took mu.
type ChainLock struct {
	mu    sync.Mutex
	tails map[int64]chan struct{}
}

func NewChainLock() *ChainLock {
	return &ChainLock{
		tails: make(map[int64]chan struct{}),
	}
}

func (l *ChainLock) Acquire(key int64) func() {
	done := make(chan struct{})

	l.mu.Lock()
	prev := l.tails[key]
	l.tails[key] = done
	l.mu.Unlock()

	if prev != nil {
		<-prev
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)

			// Drop the tail if nobody chained behind us, otherwise the
			// map would keep a channel per ever-seen account.
			l.mu.Lock()
			if l.tails[key] == done {
				delete(l.tails, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many keys currently have a chain tail.
func (l *ChainLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tails)
}
