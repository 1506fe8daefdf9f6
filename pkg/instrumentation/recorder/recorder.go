package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/meridian/pkg/instrumentation"
)

// Config contains configuration for the record writer.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds how long Log waits for channel space and how
	// long one storage write may take.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// Privacy is the treatment of data entries.
	// Default: PrivacyHash
	Privacy Privacy

	// MaxFieldLength is the maximum length for string values before truncation.
	// Default: 500
	MaxFieldLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		Privacy:        PrivacyHash,
		MaxFieldLength: 500,
	}
}

// Recorder writes instrumentation records to storage asynchronously.
type Recorder struct {
	storage    instrumentation.Storage
	config     *Config
	sanitizer  *Sanitizer
	recordChan chan *instrumentation.Record
	logger     *slog.Logger

	// mu guards closed. Log holds the read lock while enqueueing so Close
	// can wait for in-flight sends before stopping the worker.
	mu       sync.RWMutex
	closed   bool
	done     chan struct{} // aborts blocked senders
	stop     chan struct{} // tells the worker to drain and exit
	wg       sync.WaitGroup
	stopOnce sync.Once

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a recorder writing to storage.
func NewRecorder(storage instrumentation.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		sanitizer:  &Sanitizer{Privacy: config.Privacy, MaxFieldLength: config.MaxFieldLength},
		recordChan: make(chan *instrumentation.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		stop:       make(chan struct{}),
		logger:     slog.Default().With("component", "instrumentation.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("instrumentation recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
		"privacy", string(config.Privacy),
	)

	return r
}

// Log implements instrumentation.Logger. Enqueue failures are logged and
// counted; use Enqueue to observe them.
func (r *Recorder) Log(record *instrumentation.Record) {
	_ = r.Enqueue(record)
}

// Enqueue sanitizes record and queues it for writing. It returns a
// *instrumentation.RecorderError if the recorder is closed or the channel
// stays full for WriteTimeout.
func (r *Recorder) Enqueue(record *instrumentation.Record) error {
	sanitized := r.sanitizer.Apply(record)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		r.logger.Warn("recorder closed, dropping record",
			"record_id", record.ID,
			"operation", record.Operation,
		)
		return instrumentation.NewRecorderError(record.ID, instrumentation.ErrInstrumentationClosed)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- sanitized:
		return nil
	case <-timer.C:
		r.dropped.Add(1)
		r.logger.Error("record channel full, dropping record",
			"record_id", record.ID,
			"operation", record.Operation,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return instrumentation.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-r.done:
		r.dropped.Add(1)
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"operation", record.Operation,
		)
		return instrumentation.NewRecorderError(record.ID, context.Canceled)
	}
}

// Close stops accepting records, drains the channel, and waits for the
// worker to finish. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.stopOnce.Do(func() {
		r.logger.Info("shutting down instrumentation recorder")

		close(r.done)

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.stop)
		r.wg.Wait()

		r.logger.Info("instrumentation recorder shut down complete",
			"written", r.written.Load(),
			"dropped", r.dropped.Load(),
			"failed", r.failed.Load(),
		)
	})
	return nil
}

// Written returns the number of records stored successfully.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Dropped returns the number of records that were never queued.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed returns the number of records the storage rejected.
func (r *Recorder) Failed() int64 { return r.failed.Load() }

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.stop:
			r.logger.Debug("draining record channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *instrumentation.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store instrumentation record",
			"record_id", record.ID,
			"operation", record.Operation,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("instrumentation record stored",
		"record_id", record.ID,
		"operation", record.Operation,
		"entries", len(record.Entries),
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow instrumentation write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
