package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-grid/pkg/account"
	"account-grid/pkg/logging"
	"account-grid/pkg/metrics"
	"account-grid/pkg/store"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Store wraps a store.Store with circuit breaker and timeout protection.
//
// An open breaker fails fast with store.ErrCircuitOpen and an expired
// per-call deadline yields store.ErrTimeout; both wrap store.ErrUnavailable.
type Store struct {
	store   store.Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// NewStore creates a resilient wrapper around the given store.
func NewStore(s store.Store, config ResilientConfig) *Store {
	return NewStoreWithMetrics(s, config, metrics.NoOpCollector{})
}

// NewStoreWithMetrics creates a resilient wrapper with a custom metrics collector.
func NewStoreWithMetrics(s store.Store, config ResilientConfig, metricsCollector metrics.Collector) *Store {
	if metricsCollector == nil {
		metricsCollector = metrics.NoOpCollector{}
	}
	logger := logging.Global().Named("resilience").Named(s.Name())

	rs := &Store{
		store:   s,
		timeout: config.Timeout,
		metrics: metricsCollector,
		logger:  logger,
	}

	logger.Info("resilient store initialized",
		zap.String("store", s.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_interval", config.CircuitBreakerConfig.Interval),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	settings := gobreaker.Settings{
		Name:        s.Name(),
		MaxRequests: config.CircuitBreakerConfig.MaxRequests,
		Interval:    config.CircuitBreakerConfig.Interval,
		Timeout:     config.CircuitBreakerConfig.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			c := Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			}
			if config.CircuitBreakerConfig.ReadyToTrip != nil {
				return config.CircuitBreakerConfig.ReadyToTrip(c)
			}
			return ConsecutiveFailures(5)(c)
		},
		// Caller mistakes and caller cancellation say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, store.ErrInvalidWindow) ||
				errors.Is(err, store.ErrDuplicateAccount) ||
				errors.Is(err, account.ErrInvalidArgument)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			rs.metrics.RecordCircuitState(name, state)
		},
	}

	rs.cb = gobreaker.NewCircuitBreaker(settings)

	return rs
}

// Name returns the name of the underlying store.
func (rs *Store) Name() string {
	return rs.store.Name()
}

// State returns the current circuit breaker state.
func (rs *Store) State() metrics.CircuitState {
	switch rs.cb.State() {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Count returns the account total with timeout and circuit breaker protection.
func (rs *Store) Count(ctx context.Context) (int, error) {
	result, err := rs.execute(ctx, "count", func(ctx context.Context) (interface{}, error) {
		return rs.store.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// Slice returns an account window with timeout and circuit breaker protection.
func (rs *Store) Slice(ctx context.Context, offset, limit int) ([]account.Account, error) {
	result, err := rs.execute(ctx, "slice", func(ctx context.Context) (interface{}, error) {
		return rs.store.Slice(ctx, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]account.Account), nil
}

// Ping checks the underlying store through the circuit breaker, so an open
// breaker reports the store as unavailable without touching it.
func (rs *Store) Ping(ctx context.Context) error {
	_, err := rs.execute(ctx, "ping", func(ctx context.Context) (interface{}, error) {
		return nil, rs.store.Ping(ctx)
	})
	return err
}

// Append forwards to the underlying store if it accepts appends.
func (rs *Store) Append(ctx context.Context, accounts ...account.Account) error {
	appender, ok := rs.store.(store.Appender)
	if !ok {
		return fmt.Errorf("store %s does not accept appends", rs.store.Name())
	}
	_, err := rs.execute(ctx, "append", func(ctx context.Context) (interface{}, error) {
		return nil, appender.Append(ctx, accounts...)
	})
	return err
}

// Close closes the underlying store.
func (rs *Store) Close() error {
	return rs.store.Close()
}

func (rs *Store) execute(ctx context.Context, operation string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	start := time.Now()
	name := rs.store.Name()

	// Apply timeout if configured
	callCtx := ctx
	if rs.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	result, err := rs.cb.Execute(func() (interface{}, error) {
		return fn(callCtx)
	})

	duration := time.Since(start)
	rs.metrics.RecordStoreOp(name, operation, err == nil, duration)

	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		rs.logger.Warn("circuit breaker open - request rejected",
			zap.String("operation", operation),
		)
		err = store.ErrCircuitOpen
	case ctx.Err() != nil:
		// The caller gave up; report its own error untouched.
		err = ctx.Err()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		rs.logger.Warn("operation timeout",
			zap.String("operation", operation),
			zap.Duration("timeout", rs.timeout),
			zap.Duration("elapsed", duration),
		)
		err = store.ErrTimeout
	default:
		rs.logger.Error("store operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}

	rs.metrics.RecordStoreError(name, operation, store.ClassifyError(err))
	return nil, err
}
