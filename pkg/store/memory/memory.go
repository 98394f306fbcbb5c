package memory

import (
	"context"
	"sync"

	"account-grid/pkg/account"
	"account-grid/pkg/store"
)

// MemoryStore keeps accounts in a slice guarded by a RWMutex.
// Natural order is insertion order.
type MemoryStore struct {
	// accounts holds records in insertion order
	accounts []account.Account

	// numbers indexes account numbers for the uniqueness check
	numbers map[string]struct{}

	mu     sync.RWMutex
	config MemoryStoreConfig
	closed bool
}

// MemoryStoreConfig holds configuration for the memory store.
type MemoryStoreConfig struct {
	// Name is the store identifier used in logs and metrics
	Name string

	// Capacity preallocates room for this many accounts
	Capacity int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.Capacity < 0 {
		config.Capacity = 0
	}

	return &MemoryStore{
		accounts: make([]account.Account, 0, config.Capacity),
		numbers:  make(map[string]struct{}, config.Capacity),
		config:   config,
	}
}

// NewMemoryStoreWith creates a store preloaded with accounts.
func NewMemoryStoreWith(name string, accounts ...account.Account) (*MemoryStore, error) {
	s := NewMemoryStore(MemoryStoreConfig{Name: name, Capacity: len(accounts)})
	if err := s.Append(context.Background(), accounts...); err != nil {
		return nil, err
	}
	return s, nil
}

// Count returns the number of stored accounts.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, store.ErrUnavailable
	}
	return len(s.accounts), nil
}

// Slice returns a copy of the window [offset, offset+limit).
func (s *MemoryStore) Slice(ctx context.Context, offset, limit int) ([]account.Account, error) {
	if err := store.ValidateWindow(offset, limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrUnavailable
	}

	if offset >= len(s.accounts) {
		return []account.Account{}, nil
	}

	end := len(s.accounts)
	if remaining := end - offset; limit < remaining {
		end = offset + limit
	}

	out := make([]account.Account, end-offset)
	copy(out, s.accounts[offset:end])
	return out, nil
}

// Append adds accounts at the end. The whole batch is rejected on a duplicate.
func (s *MemoryStore) Append(ctx context.Context, accounts ...account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.CheckBatch(accounts); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrUnavailable
	}

	for i := range accounts {
		if _, exists := s.numbers[accounts[i].AccountNumber]; exists {
			return store.DuplicateError(accounts[i].AccountNumber)
		}
	}

	for _, a := range accounts {
		s.numbers[a.AccountNumber] = struct{}{}
		s.accounts = append(s.accounts, a)
	}
	return nil
}

// Ping reports whether the store is still open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrUnavailable
	}
	return ctx.Err()
}

// Name returns the store name.
func (s *MemoryStore) Name() string {
	return s.config.Name
}

// Close marks the store closed; later calls fail with store.ErrUnavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
