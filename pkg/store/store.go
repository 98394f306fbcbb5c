package store

import (
	"context"

	"account-grid/pkg/account"
)

// Store is the read side of an account collection.
// Implementations keep a natural (insertion) order that Slice honours.
type Store interface {
	// Count returns the total number of accounts currently in the store.
	Count(ctx context.Context) (int, error)

	// Slice returns up to limit accounts starting at offset, in natural order.
	// An offset at or past the end returns an empty slice and no error.
	Slice(ctx context.Context, offset, limit int) ([]account.Account, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Name identifies the store in logs and metrics (e.g. "memory", "redis", "postgres").
	Name() string

	// Close releases any resources held by the store.
	Close() error
}

// Appender is implemented by stores that can be filled by seeding and tests.
// The query path never writes.
type Appender interface {
	// Append adds accounts at the end of the natural order.
	// Duplicate account numbers fail with ErrDuplicateAccount and nothing is written.
	Append(ctx context.Context, accounts ...account.Account) error
}

// AppendStore is a Store that also accepts appends.
type AppendStore interface {
	Store
	Appender
}

// ValidateWindow checks the offset/limit pair passed to Slice.
func ValidateWindow(offset, limit int) error {
	if offset < 0 {
		return ErrInvalidWindow
	}
	if limit < 1 {
		return ErrInvalidWindow
	}
	return nil
}

// CheckBatch validates every account and rejects account numbers repeated
// inside the batch itself.
func CheckBatch(accounts []account.Account) error {
	seen := make(map[string]struct{}, len(accounts))
	for i := range accounts {
		if err := accounts[i].Validate(); err != nil {
			return err
		}
		number := accounts[i].AccountNumber
		if _, dup := seen[number]; dup {
			return DuplicateError(number)
		}
		seen[number] = struct{}{}
	}
	return nil
}
