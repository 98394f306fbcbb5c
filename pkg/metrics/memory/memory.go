package memory

import (
	"sync"
	"time"

	"account-grid/pkg/metrics"
)

// MemoryCollector implements metrics.Collector for in-memory testing.
type MemoryCollector struct {
	mu sync.RWMutex

	// Per-store metrics
	storeMetrics map[string]*StoreMetrics

	// Query service
	queriesByCode map[string]int64
	returned      int64
	sharedQueries int64

	// HTTP layer, keyed by "METHOD route"
	httpRequests map[string]int64
	httpStatuses map[int]int64
}

// StoreMetrics holds metrics for a single account store.
type StoreMetrics struct {
	// Operation counts by operation name
	Ops    map[string]int64
	Errors int64

	// Error types (by error_type label)
	ErrorsByType map[string]int64

	// Circuit breaker
	CircuitState metrics.CircuitState
	CircuitOpens int64

	Latencies []time.Duration
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		storeMetrics:  make(map[string]*StoreMetrics),
		queriesByCode: make(map[string]int64),
		httpRequests:  make(map[string]int64),
		httpStatuses:  make(map[int]int64),
	}
}

// getOrCreateStore must be called with mc.mu held.
func (mc *MemoryCollector) getOrCreateStore(store string) *StoreMetrics {
	sm, exists := mc.storeMetrics[store]
	if !exists {
		sm = &StoreMetrics{
			Ops:          make(map[string]int64),
			ErrorsByType: make(map[string]int64),
		}
		mc.storeMetrics[store] = sm
	}
	return sm
}

// RecordStoreOp records a store operation.
func (mc *MemoryCollector) RecordStoreOp(store, operation string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.getOrCreateStore(store)
	sm.Ops[operation]++
	if !success {
		sm.Errors++
	}
	sm.Latencies = append(sm.Latencies, duration)
}

// RecordStoreError records an error by type.
func (mc *MemoryCollector) RecordStoreError(store, operation, errorType string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.getOrCreateStore(store)
	sm.ErrorsByType[errorType]++
}

// RecordCircuitState records the current circuit breaker state.
func (mc *MemoryCollector) RecordCircuitState(store string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.getOrCreateStore(store)
	oldState := sm.CircuitState
	sm.CircuitState = state

	// Count transitions to open
	if oldState != metrics.CircuitOpen && state == metrics.CircuitOpen {
		sm.CircuitOpens++
	}
}

// RecordQuery records a page query outcome. code is empty on success.
func (mc *MemoryCollector) RecordQuery(code string, returned int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if code == "" {
		code = "OK"
		mc.returned += int64(returned)
	}
	mc.queriesByCode[code]++
}

// RecordSharedQuery records a query that reused an in-flight result.
func (mc *MemoryCollector) RecordSharedQuery() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.sharedQueries++
}

// RecordHTTPRequest records a served HTTP request.
func (mc *MemoryCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.httpRequests[method+" "+route]++
	mc.httpStatuses[status]++
}

// Snapshot is a copy of the collected metrics.
type Snapshot struct {
	StoreMetrics  map[string]StoreMetrics
	QueriesByCode map[string]int64
	Returned      int64
	SharedQueries int64
	HTTPRequests  map[string]int64
	HTTPStatuses  map[int]int64
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := Snapshot{
		StoreMetrics:  make(map[string]StoreMetrics, len(mc.storeMetrics)),
		QueriesByCode: make(map[string]int64, len(mc.queriesByCode)),
		Returned:      mc.returned,
		SharedQueries: mc.sharedQueries,
		HTTPRequests:  make(map[string]int64, len(mc.httpRequests)),
		HTTPStatuses:  make(map[int]int64, len(mc.httpStatuses)),
	}

	for name, sm := range mc.storeMetrics {
		snapshot.StoreMetrics[name] = sm.clone()
	}
	for code, n := range mc.queriesByCode {
		snapshot.QueriesByCode[code] = n
	}
	for key, n := range mc.httpRequests {
		snapshot.HTTPRequests[key] = n
	}
	for status, n := range mc.httpStatuses {
		snapshot.HTTPStatuses[status] = n
	}

	return snapshot
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.storeMetrics = make(map[string]*StoreMetrics)
	mc.queriesByCode = make(map[string]int64)
	mc.returned = 0
	mc.sharedQueries = 0
	mc.httpRequests = make(map[string]int64)
	mc.httpStatuses = make(map[int]int64)
}

// GetStoreMetrics returns a copy of the metrics for a specific store, or nil.
func (mc *MemoryCollector) GetStoreMetrics(store string) *StoreMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if sm, exists := mc.storeMetrics[store]; exists {
		c := sm.clone()
		return &c
	}
	return nil
}

func (sm *StoreMetrics) clone() StoreMetrics {
	c := StoreMetrics{
		Ops:          make(map[string]int64, len(sm.Ops)),
		Errors:       sm.Errors,
		ErrorsByType: make(map[string]int64, len(sm.ErrorsByType)),
		CircuitState: sm.CircuitState,
		CircuitOpens: sm.CircuitOpens,
		Latencies:    append([]time.Duration(nil), sm.Latencies...),
	}
	for op, n := range sm.Ops {
		c.Ops[op] = n
	}
	for t, n := range sm.ErrorsByType {
		c.ErrorsByType[t] = n
	}
	return c
}
