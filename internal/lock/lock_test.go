package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func forEachImpl(t *testing.T, fn func(t *testing.T, newLock func() KeyedLock)) {
	t.Run("QueueLock", func(t *testing.T) {
		fn(t, func() KeyedLock { return NewQueueLock() })
	})
	t.Run("ChainLock", func(t *testing.T) {
		fn(t, func() KeyedLock { return NewChainLock() })
	})
}

func TestKeyedLock_MutualExclusion(t *testing.T) {
	forEachImpl(t, func(t *testing.T, newLock func() KeyedLock) {
		l := newLock()

		const goroutines = 100
		counter := 0
		inSection := 0

		var wg sync.WaitGroup
		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				release := l.Acquire(42)
				defer release()

				inSection++
				assert.Equal(t, 1, inSection)
				counter++
				inSection--
			}()
		}
		wg.Wait()

		assert.Equal(t, goroutines, counter)
	})
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	forEachImpl(t, func(t *testing.T, newLock func() KeyedLock) {
		l := newLock()

		// Hold key 1 for the whole test.
		release := l.Acquire(1)
		defer release()

		acquired := make(chan struct{})
		go func() {
			r := l.Acquire(2)
			close(acquired)
			r()
		}()

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("acquire on a different key blocked behind key 1")
		}
	})
}

func TestKeyedLock_FIFOOrder(t *testing.T) {
	forEachImpl(t, func(t *testing.T, newLock func() KeyedLock) {
		l := newLock()

		holder := l.Acquire(7)

		const waiters = 5
		var mu sync.Mutex
		var order []int

		var wg sync.WaitGroup
		wg.Add(waiters)
		for i := 0; i < waiters; i++ {
			go func(n int) {
				defer wg.Done()
				release := l.Acquire(7)
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				release()
			}(i)
			// Stagger so each waiter is queued before the next arrives.
			time.Sleep(30 * time.Millisecond)
		}

		holder()
		wg.Wait()

		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})
}

func TestKeyedLock_DoubleReleaseIsNoop(t *testing.T) {
	forEachImpl(t, func(t *testing.T, newLock func() KeyedLock) {
		l := newLock()

		holder := l.Acquire(9)

		firstEntered := make(chan struct{})
		firstMayExit := make(chan struct{})
		secondEntered := make(chan struct{})

		go func() {
			release := l.Acquire(9)
			close(firstEntered)
			<-firstMayExit
			release()
		}()
		time.Sleep(30 * time.Millisecond)
		go func() {
			release := l.Acquire(9)
			close(secondEntered)
			release()
		}()
		time.Sleep(30 * time.Millisecond)

		holder()
		holder() // second call must not wake another waiter

		<-firstEntered
		select {
		case <-secondEntered:
			t.Fatal("double release woke a second waiter")
		case <-time.After(100 * time.Millisecond):
		}

		close(firstMayExit)
		select {
		case <-secondEntered:
		case <-time.After(2 * time.Second):
			t.Fatal("second waiter never acquired")
		}
	})
}

func TestQueueLock_EvictsIdleEntries(t *testing.T) {
	l := NewQueueLock()

	for key := int64(1); key <= 10; key++ {
		release := l.Acquire(key)
		release()
	}

	assert.Equal(t, 0, l.Len())
}

func TestChainLock_EvictsIdleTails(t *testing.T) {
	l := NewChainLock()

	for key := int64(1); key <= 10; key++ {
		release := l.Acquire(key)
		release()
	}

	assert.Equal(t, 0, l.Len())
}

func TestKeyedLock_SequentialReuse(t *testing.T) {
	forEachImpl(t, func(t *testing.T, newLock func() KeyedLock) {
		l := newLock()

		for i := 0; i < 50; i++ {
			release := l.Acquire(3)
			release()
		}

		done := make(chan struct{})
		go func() {
			release := l.Acquire(3)
			release()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("lock not reacquirable after sequential use")
		}
	})
}
