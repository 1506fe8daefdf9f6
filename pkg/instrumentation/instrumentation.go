package instrumentation

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config contains configuration for an Instrumentation.
type Config struct {
	// Enabled controls whether records reach the logger. Disabled
	// instrumentation still hands out working builders that log nowhere.
	// Default: true
	Enabled bool

	// Workers bounds how many deferred generators run concurrently.
	// Default: 4
	Workers int

	// FlushTimeout bounds how long Flush waits for outstanding deferred
	// values before recording them as unavailable.
	// Default: 5 seconds
	FlushTimeout time.Duration

	// Observer, if set, is notified after every flush.
	Observer Observer
}

// DefaultConfig returns the default instrumentation configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Workers:      4,
		FlushTimeout: 5 * time.Second,
	}
}

// FlushStats summarizes one flush for an Observer.
type FlushStats struct {
	Operation string
	Entries   int
	Sensitive int
	Metrics   int
	Deferred  int
	TimedOut  int
	Failed    int

	// Wait is how long Flush blocked on deferred values.
	Wait time.Duration

	// Lifetime is the time between opening and flushing the builder.
	Lifetime time.Duration
}

// Observer receives flush statistics, typically to export them as metrics.
type Observer interface {
	ObserveFlush(stats FlushStats)
}

// Instrumentation creates builders that deliver to one Logger and share one
// worker pool for deferred values.
type Instrumentation struct {
	logger  Logger
	config  *Config
	pool    *Pool
	log     *slog.Logger
	open    atomic.Int64
	flushed atomic.Int64
}

// New creates an Instrumentation delivering to logger. A nil logger or a
// disabled config delivers to NopLogger.
func New(logger Logger, config *Config) *Instrumentation {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = DefaultConfig().FlushTimeout
	}
	if logger == nil || !config.Enabled {
		logger = NopLogger
	}

	i := &Instrumentation{
		logger: logger,
		config: config,
		pool:   NewPool(config.Workers),
		log:    slog.Default().With("component", "instrumentation"),
	}

	i.log.Debug("instrumentation initialized",
		"enabled", config.Enabled,
		"workers", config.Workers,
		"flush_timeout", config.FlushTimeout,
	)

	return i
}

// Nop returns an Instrumentation that discards everything. It is the
// fallback for components constructed without one.
func Nop() *Instrumentation {
	return New(NopLogger, &Config{Enabled: false, Workers: 1, FlushTimeout: time.Second})
}

// Builder opens a builder for one occurrence of operation.
func (i *Instrumentation) Builder(operation string) *Builder {
	i.open.Add(1)
	return &Builder{
		inst:      i,
		id:        uuid.New().String(),
		operation: operation,
		start:     time.Now(),
		state:     StateOpen,
	}
}

// Open returns the number of builders opened but not yet flushed.
func (i *Instrumentation) Open() int64 { return i.open.Load() }

// Flushed returns the number of records delivered so far.
func (i *Instrumentation) Flushed() int64 { return i.flushed.Load() }

// Close rejects new deferred values and waits up to the flush timeout for
// running generators. Generators still running after that are abandoned and
// ErrCloseTimeout is returned. Builders flushed after Close still deliver;
// their deferred entries are recorded as unavailable.
func (i *Instrumentation) Close() error {
	err := i.pool.Close(i.config.FlushTimeout)
	if err != nil {
		i.log.Warn("instrumentation closed with generators still running",
			"grace_period", i.config.FlushTimeout,
		)
	}
	if n := i.open.Load(); n > 0 {
		i.log.Warn("instrumentation closed with unflushed builders", "open", n)
	}
	return err
}

// deliver hands a record to the logger. A panicking logger is contained.
func (i *Instrumentation) deliver(record *Record) {
	defer func() {
		if r := recover(); r != nil {
			i.log.Error("instrumentation logger panicked",
				"record_id", record.ID,
				"operation", record.Operation,
				"panic", r,
			)
		}
	}()
	i.logger.Log(record)
	i.flushed.Add(1)
}
