package instrumentation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DeferredValue lazily produces an entry value. It runs once, off the
// caller's goroutine. ctx is cancelled once the owning builder's flush has
// stopped waiting.
type DeferredValue func(ctx context.Context) (Value, error)

// State is the lifecycle state of a Builder.
type State int

const (
	// StateOpen accepts appends and one Flush.
	StateOpen State = iota
	// StateClosed rejects everything.
	StateClosed
)

// String returns "open" or "closed".
func (s State) String() string {
	if s == StateClosed {
		return "closed"
	}
	return "open"
}

// outcome of a deferred slot.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeFailed
)

// slot is the pre-allocated home of one deferred entry. The generator
// goroutine writes value and outcome, then closes done. Flush reads them
// only after done is closed.
type slot struct {
	index   int
	done    chan struct{}
	value   Value
	outcome outcome
}

// Builder accumulates the entries of one monitored operation.
//
// A Builder is owned by one logical operation: appends are expected from one
// goroutine at a time. Deferred generators complete concurrently into their
// own slots.
type Builder struct {
	inst      *Instrumentation
	id        string
	operation string
	start     time.Time

	mu      sync.Mutex
	state   State
	entries []Entry
	slots   []*slot
	ctx     context.Context
	cancel  context.CancelFunc
}

// ID returns the record ID this builder will deliver under.
func (b *Builder) ID() string { return b.id }

// Operation returns the operation name.
func (b *Builder) Operation() string { return b.operation }

// State returns the current lifecycle state.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Len returns the number of entries appended so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Data appends a sensitive entry.
func (b *Builder) Data(name string, value Value) *Builder {
	return b.append("Data", name, value, Sensitive)
}

// DataInt appends a sensitive integer.
func (b *Builder) DataInt(name string, value int64) *Builder {
	return b.append("Data", name, Int(value), Sensitive)
}

// DataString appends a sensitive string.
func (b *Builder) DataString(name string, value string) *Builder {
	return b.append("Data", name, String(value), Sensitive)
}

// DataStrings appends a sensitive string list.
func (b *Builder) DataStrings(name string, value []string) *Builder {
	return b.append("Data", name, Strings(value), Sensitive)
}

// DataFunc appends a sensitive entry whose value is computed in the
// background by gen.
func (b *Builder) DataFunc(name string, gen DeferredValue) *Builder {
	return b.appendDeferred("DataFunc", name, gen, Sensitive)
}

// Metric appends a non-sensitive entry.
func (b *Builder) Metric(name string, value Value) *Builder {
	return b.append("Metric", name, value, Metric)
}

// MetricInt appends a non-sensitive integer.
func (b *Builder) MetricInt(name string, value int64) *Builder {
	return b.append("Metric", name, Int(value), Metric)
}

// MetricString appends a non-sensitive string.
func (b *Builder) MetricString(name string, value string) *Builder {
	return b.append("Metric", name, String(value), Metric)
}

// MetricStrings appends a non-sensitive string list.
func (b *Builder) MetricStrings(name string, value []string) *Builder {
	return b.append("Metric", name, Strings(value), Metric)
}

// MetricDuration appends a non-sensitive duration in milliseconds.
func (b *Builder) MetricDuration(name string, d time.Duration) *Builder {
	return b.append("Metric", name, Int(d.Milliseconds()), Metric)
}

// MetricFunc appends a non-sensitive entry whose value is computed in the
// background by gen.
func (b *Builder) MetricFunc(name string, gen DeferredValue) *Builder {
	return b.appendDeferred("MetricFunc", name, gen, Metric)
}

func (b *Builder) append(call, name string, value Value, sensitivity Sensitivity) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mustBeOpen(call, name)
	b.entries = append(b.entries, Entry{
		Name:        name,
		Value:       value,
		Sensitivity: sensitivity,
	})
	return b
}

func (b *Builder) appendDeferred(call, name string, gen DeferredValue, sensitivity Sensitivity) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mustBeOpen(call, name)

	s := &slot{
		index: len(b.entries),
		done:  make(chan struct{}),
	}
	b.entries = append(b.entries, Entry{
		Name:        name,
		Sensitivity: sensitivity,
		Deferred:    true,
	})
	b.slots = append(b.slots, s)

	if gen == nil {
		s.value = Unavailable("no generator")
		s.outcome = outcomeFailed
		close(s.done)
		return b
	}

	// nothing will read the value
	if !b.inst.config.Enabled {
		s.value = Unavailable("disabled")
		close(s.done)
		return b
	}

	if b.ctx == nil {
		b.ctx, b.cancel = context.WithCancel(context.Background())
	}
	ctx := b.ctx

	err := b.inst.pool.Submit(func() { runGenerator(ctx, s, gen) })
	if err != nil {
		s.value = Unavailable(err.Error())
		s.outcome = outcomeFailed
		close(s.done)
	}
	return b
}

// mustBeOpen panics with a *ProtocolError if the builder has been flushed.
// Callers hold b.mu.
func (b *Builder) mustBeOpen(call, name string) {
	if b.state == StateClosed {
		panic(NewProtocolError(b.operation, call, name, ErrBuilderClosed))
	}
}

// runGenerator resolves one slot. Errors and panics become Unavailable.
func runGenerator(ctx context.Context, s *slot, gen DeferredValue) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.value = Unavailable(fmt.Sprintf("panic: %v", r))
			s.outcome = outcomeFailed
		}
	}()

	value, err := gen(ctx)
	if err != nil {
		s.value = Unavailable("error: " + err.Error())
		s.outcome = outcomeFailed
		return
	}
	s.value = value
	s.outcome = outcomeOK
}

// Flush closes the builder, waits for outstanding deferred values up to the
// configured flush timeout and delivers one record to the logger.
//
// The only error Flush returns is a *ProtocolError when the builder was
// already flushed; nothing is delivered in that case.
func (b *Builder) Flush() error {
	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return NewProtocolError(b.operation, "Flush", "", ErrBuilderClosed)
	}
	b.state = StateClosed
	entries := b.entries
	slots := b.slots
	cancel := b.cancel
	b.entries = nil
	b.slots = nil
	b.mu.Unlock()

	waitStart := time.Now()
	timedOut, failed := resolveSlots(entries, slots, b.inst.config.FlushTimeout)
	wait := time.Since(waitStart)
	if cancel != nil {
		cancel()
	}

	now := time.Now()
	record := &Record{
		ID:        b.id,
		Operation: b.operation,
		StartTime: b.start,
		FlushTime: now,
		Duration:  now.Sub(b.start),
		Entries:   entries,
	}

	b.inst.open.Add(-1)
	b.inst.deliver(record)

	if timedOut > 0 {
		b.inst.log.Warn("deferred instrumentation values timed out",
			"operation", b.operation,
			"record_id", b.id,
			"timed_out", timedOut,
			"flush_timeout", b.inst.config.FlushTimeout,
		)
	}

	if obs := b.inst.config.Observer; obs != nil {
		stats := FlushStats{
			Operation: b.operation,
			Entries:   len(entries),
			Deferred:  len(slots),
			TimedOut:  timedOut,
			Failed:    failed,
			Wait:      wait,
			Lifetime:  record.Duration,
		}
		for _, e := range entries {
			if e.Sensitivity == Metric {
				stats.Metrics++
			} else {
				stats.Sensitive++
			}
		}
		obs.ObserveFlush(stats)
	}

	return nil
}

// resolveSlots copies every resolved slot value into entries. Once the
// shared deadline passes, unresolved slots get the timeout marker and their
// late results are ignored.
func resolveSlots(entries []Entry, slots []*slot, timeout time.Duration) (timedOut, failed int) {
	if len(slots) == 0 {
		return 0, 0
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	expired := false
	for _, s := range slots {
		if !expired {
			select {
			case <-s.done:
			case <-timer.C:
				expired = true
			}
		}

		select {
		case <-s.done:
			entries[s.index].Value = s.value
			if s.outcome == outcomeFailed {
				failed++
			}
		default:
			entries[s.index].Value = Unavailable("timeout")
			timedOut++
		}
	}
	return timedOut, failed
}
