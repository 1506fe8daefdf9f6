package instrumentation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool runs deferred value generators in the background with bounded
// concurrency. Submit never blocks the caller; tasks beyond the limit queue
// on the semaphore.
type Pool struct {
	sem    *semaphore.Weighted
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewPool creates a pool running at most workers tasks at once.
// A non-positive workers value is treated as 1.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		sem: semaphore.NewWeighted(int64(workers)),
	}
}

// Submit schedules task. It returns ErrInstrumentationClosed if the pool has
// been closed; the task is not run in that case.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrInstrumentationClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		// Background context: acquisition only fails on cancellation.
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer p.sem.Release(1)

		task()
	}()
	return nil
}

// Close rejects further submissions and waits for queued and running tasks.
// It gives up after timeout and returns ErrCloseTimeout; the remaining tasks
// keep running. A non-positive timeout waits indefinitely.
func (p *Pool) Close(timeout time.Duration) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	if timeout <= 0 {
		p.wg.Wait()
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrCloseTimeout
	}
}
