package metrics

import (
	"time"
)

// Collector defines the interface for collecting account service metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory for tests).
type Collector interface {
	// Store operations (count, slice, ping)
	RecordStoreOp(store, operation string, success bool, duration time.Duration)
	RecordStoreError(store, operation, errorType string)

	// Circuit breaker
	RecordCircuitState(store string, state CircuitState)

	// Query service
	RecordQuery(code string, returned int, duration time.Duration)
	RecordSharedQuery()

	// HTTP layer
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the store has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of Collector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

// RecordStoreOp does nothing.
func (NoOpCollector) RecordStoreOp(store, operation string, success bool, duration time.Duration) {}

// RecordStoreError does nothing.
func (NoOpCollector) RecordStoreError(store, operation, errorType string) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(store string, state CircuitState) {}

// RecordQuery does nothing.
func (NoOpCollector) RecordQuery(code string, returned int, duration time.Duration) {}

// RecordSharedQuery does nothing.
func (NoOpCollector) RecordSharedQuery() {}

// RecordHTTPRequest does nothing.
func (NoOpCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}
