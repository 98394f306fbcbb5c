package mock

import (
	"context"
	"sync/atomic"

	"account-grid/pkg/account"
)

// MockStore is a mock implementation of store.Store for testing.
// It allows injecting custom behavior for each method and tracks call counts.
type MockStore struct {
	// Function hooks - set these to customize behavior
	CountFunc func(ctx context.Context) (int, error)
	SliceFunc func(ctx context.Context, offset, limit int) ([]account.Account, error)
	PingFunc  func(ctx context.Context) error
	NameFunc  func() string
	CloseFunc func() error

	// Call tracking (atomic for race-free access)
	countCalls int64
	sliceCalls int64
	pingCalls  int64
	closeCalls int64
}

// Count implements store.Store.Count with optional custom behavior.
func (m *MockStore) Count(ctx context.Context) (int, error) {
	atomic.AddInt64(&m.countCalls, 1)
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

// Slice implements store.Store.Slice with optional custom behavior.
func (m *MockStore) Slice(ctx context.Context, offset, limit int) ([]account.Account, error) {
	atomic.AddInt64(&m.sliceCalls, 1)
	if m.SliceFunc != nil {
		return m.SliceFunc(ctx, offset, limit)
	}
	return []account.Account{}, nil
}

// Ping implements store.Store.Ping with optional custom behavior.
func (m *MockStore) Ping(ctx context.Context) error {
	atomic.AddInt64(&m.pingCalls, 1)
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Name implements store.Store.Name with optional custom behavior.
func (m *MockStore) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Close implements store.Store.Close with optional custom behavior.
func (m *MockStore) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// CountCalls returns the number of Count calls (thread-safe).
func (m *MockStore) CountCalls() int {
	return int(atomic.LoadInt64(&m.countCalls))
}

// SliceCalls returns the number of Slice calls (thread-safe).
func (m *MockStore) SliceCalls() int {
	return int(atomic.LoadInt64(&m.sliceCalls))
}

// PingCalls returns the number of Ping calls (thread-safe).
func (m *MockStore) PingCalls() int {
	return int(atomic.LoadInt64(&m.pingCalls))
}

// CloseCalls returns the number of Close calls (thread-safe).
func (m *MockStore) CloseCalls() int {
	return int(atomic.LoadInt64(&m.closeCalls))
}

// NewMockStore creates a MockStore with the given name and default behavior.
func NewMockStore(name string) *MockStore {
	return &MockStore{
		NameFunc: func() string { return name },
	}
}

// NewFailingStore creates a MockStore whose data calls all return err.
func NewFailingStore(name string, err error) *MockStore {
	return &MockStore{
		NameFunc:  func() string { return name },
		CountFunc: func(ctx context.Context) (int, error) { return 0, err },
		SliceFunc: func(ctx context.Context, offset, limit int) ([]account.Account, error) { return nil, err },
		PingFunc:  func(ctx context.Context) error { return err },
	}
}
