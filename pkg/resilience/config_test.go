package resilience

import (
	"testing"
	"time"
)

func TestDefaultResilientConfig(t *testing.T) {
	config := DefaultResilientConfig()

	if config.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", config.Timeout)
	}

	if config.CircuitBreakerConfig.MaxRequests != 5 {
		t.Errorf("Expected MaxRequests 5, got %d", config.CircuitBreakerConfig.MaxRequests)
	}

	if config.CircuitBreakerConfig.Timeout != 30*time.Second {
		t.Errorf("Expected CB timeout 30s, got %v", config.CircuitBreakerConfig.Timeout)
	}

	trip := config.CircuitBreakerConfig.ReadyToTrip
	if trip == nil {
		t.Fatal("Expected ReadyToTrip function to be set")
	}

	tests := []struct {
		name   string
		counts Counts
		want   bool
	}{
		{"too few requests", Counts{Requests: 10, TotalFailures: 10}, false},
		{"low error rate", Counts{Requests: 100, TotalFailures: 10}, false},
		{"at threshold", Counts{Requests: 20, TotalFailures: 3}, true},
		{"high error rate", Counts{Requests: 40, TotalFailures: 20}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trip(tt.counts); got != tt.want {
				t.Errorf("ReadyToTrip(%+v) = %v, want %v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestConsecutiveFailures(t *testing.T) {
	trip := ConsecutiveFailures(3)

	if trip(Counts{ConsecutiveFailures: 2}) {
		t.Error("Should not trip with 2 failures")
	}
	if !trip(Counts{ConsecutiveFailures: 3}) {
		t.Error("Should trip with 3 failures")
	}
}

func TestResilientConfig_With(t *testing.T) {
	config := DefaultResilientConfig()
	newConfig := config.
		WithTimeout(2 * time.Second).
		WithCircuitBreakerTimeout(20 * time.Second).
		WithReadyToTrip(ConsecutiveFailures(1))

	if newConfig.Timeout != 2*time.Second {
		t.Errorf("Expected timeout 2s, got %v", newConfig.Timeout)
	}
	if newConfig.CircuitBreakerConfig.Timeout != 20*time.Second {
		t.Errorf("Expected CB timeout 20s, got %v", newConfig.CircuitBreakerConfig.Timeout)
	}
	if !newConfig.CircuitBreakerConfig.ReadyToTrip(Counts{ConsecutiveFailures: 1}) {
		t.Error("Expected custom ReadyToTrip to be used")
	}

	// Verify original is unchanged
	if config.Timeout != 5*time.Second {
		t.Errorf("Original config changed: got %v", config.Timeout)
	}
	if config.CircuitBreakerConfig.Timeout != 30*time.Second {
		t.Errorf("Original config changed: got %v", config.CircuitBreakerConfig.Timeout)
	}
}
