package fenwick

import (
	"golang.org/x/time/rate"
)

// Option is a functional option for configuring an executor, following the
// same pattern as the worker pool's WorkerPoolOption: a closure over an
// unexported config struct, applied before the concrete strategy is built.
type Option func(*executorConfig)

type executorConfig struct {
	workers            int
	taskBuffer         int
	blockSize          int
	rebalanceStep      int
	batchLimiter       *rate.Limiter
	pinCores           bool
	aggregateStripeLen int
}

func defaultConfig() *executorConfig {
	return &executorConfig{
		workers:       1,
		taskBuffer:    0, // resolved to workers if left at zero
		blockSize:     16384,
		rebalanceStep: 127,
	}
}

// WithWorkers sets the worker count W. Values of w<=0 are ignored and the
// default of 1 worker is kept; constructors do not reject them.
func WithWorkers(w int) Option {
	return func(cfg *executorConfig) {
		if w > 0 {
			cfg.workers = w
		}
	}
}

// WithTaskBuffer sets the per-worker queue capacity for the central
// schedulers (C9/C10). Defaults to the worker count if unset.
func WithTaskBuffer(size int) Option {
	return func(cfg *executorConfig) {
		if size > 0 {
			cfg.taskBuffer = size
		}
	}
}

// WithBlockSize sets the striped tree's lock granularity S (default 16384).
func WithBlockSize(size int) Option {
	return func(cfg *executorConfig) {
		if size > 0 {
			cfg.blockSize = size
		}
	}
}

// WithRebalanceStep sets the semi-static pipeline's per-batch boundary
// perturbation magnitude (default 127, an odd integer).
func WithRebalanceStep(step int) Option {
	return func(cfg *executorConfig) {
		if step > 0 {
			cfg.rebalanceStep = step
		}
	}
}

// WithBatchRateLimit throttles batch admission into the central schedulers'
// queues, generalizing the worker pool's per-task WithRateLimit to a
// per-batch rate.
func WithBatchRateLimit(batchesPerSecond float64, burst int) Option {
	return func(cfg *executorConfig) {
		if batchesPerSecond > 0 && burst > 0 {
			cfg.batchLimiter = rate.NewLimiter(rate.Limit(batchesPerSecond), burst)
		}
	}
}

// WithCorePinning requests that worker goroutines be pinned to distinct
// OS cores where the platform supports it. This is a performance hint,
// never a correctness requirement; on platforms without affinity support
// it is silently ignored.
func WithCorePinning() Option {
	return func(cfg *executorConfig) {
		cfg.pinCores = true
	}
}

// WithAggregateStripeWidth overrides FenwickPipelineAggregate's local
// buffer length. Defaults to N+1; values smaller than N+1 are raised to
// N+1 since propagate addresses the buffer up to index N.
func WithAggregateStripeWidth(n int) Option {
	return func(cfg *executorConfig) {
		if n > 0 {
			cfg.aggregateStripeLen = n
		}
	}
}

func applyOptions(opts []Option) *executorConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.taskBuffer == 0 {
		cfg.taskBuffer = cfg.workers
	}
	return cfg
}
