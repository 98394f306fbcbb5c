package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Common store errors.
var (
	// ErrUnavailable is returned when the backing store cannot serve requests
	ErrUnavailable = errors.New("store: unavailable")

	// ErrTimeout is returned when a store operation exceeds its deadline
	ErrTimeout = fmt.Errorf("store: operation timeout: %w", ErrUnavailable)

	// ErrCircuitOpen is returned when the circuit breaker rejects the call
	ErrCircuitOpen = fmt.Errorf("store: circuit breaker open: %w", ErrUnavailable)

	// ErrDuplicateAccount is returned when an account number already exists
	ErrDuplicateAccount = errors.New("store: duplicate account number")

	// ErrInvalidWindow is returned for a negative offset or a non-positive limit
	ErrInvalidWindow = errors.New("store: invalid slice window")
)

// DuplicateError wraps ErrDuplicateAccount with the offending number.
func DuplicateError(accountNumber string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateAccount, accountNumber)
}

// IsUnavailable checks if the error means the store could not be reached.
// Connection-level failures from drivers count as unavailable too.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return contains(err.Error(), "connection refused", "connection reset", "no such host", "dial", "broken pipe", "i/o timeout")
}

// IsTimeout checks if the error is a store timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCircuitOpen checks if the error came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsDuplicate checks if the error is a duplicate account number.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateAccount)
}

// ClassifyError returns a label for the error, used by metrics.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, ErrDuplicateAccount):
		return "duplicate"
	case IsUnavailable(err):
		return "unavailable"
	case contains(err.Error(), "unmarshal", "decode", "scan"):
		return "serialization"
	default:
		return "other"
	}
}

// WrapError adds the store name and operation to err.
func WrapError(err error, storeName, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store %s %s: %w", storeName, operation, err)
}

func contains(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, substr := range substrs {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}
