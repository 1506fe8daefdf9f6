package instrumentation

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	wg.Wait()
	pool.Close(0)

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestPool_CloseWaitsAndRejects(t *testing.T) {
	pool := NewPool(1)

	var done atomic.Bool
	if err := pool.Submit(func() {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := pool.Close(time.Second); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !done.Load() {
		t.Error("Close returned before running task finished")
	}

	err := pool.Submit(func() {})
	if !errors.Is(err, ErrInstrumentationClosed) {
		t.Errorf("Submit after Close error = %v, want ErrInstrumentationClosed", err)
	}
}

func TestNewPool_NonPositiveWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close(0)

	ran := make(chan struct{})
	if err := pool.Submit(func() { close(ran) }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestPool_CloseTimeout(t *testing.T) {
	pool := NewPool(1)

	release := make(chan struct{})
	defer close(release)
	if err := pool.Submit(func() { <-release }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	start := time.Now()
	err := pool.Close(50 * time.Millisecond)
	if !errors.Is(err, ErrCloseTimeout) {
		t.Errorf("Close() error = %v, want ErrCloseTimeout", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("Close() took %v, want about 50ms", d)
	}
}
