// Package storetest holds fixtures and a shared conformance suite for
// store.AppendStore implementations.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"account-grid/pkg/account"
	"account-grid/pkg/store"

	"github.com/shopspring/decimal"
)

// Accounts returns n accounts A1..An with predictable fields.
// Account i has number "A<i>", title "Account <i>" and phone "100-<iiii>" (zero padded).
func Accounts(n int) []account.Account {
	out := make([]account.Account, n)
	for i := 0; i < n; i++ {
		out[i] = Numbered(i + 1)
	}
	return out
}

// Numbered builds the i-th fixture account.
func Numbered(i int) account.Account {
	return account.Account{
		ID:             fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
		AccountNumber:  fmt.Sprintf("A%d", i),
		AccountTitle:   fmt.Sprintf("Account %d", i),
		CurrentBalance: decimal.NewFromInt(int64(i * 100)),
		AccountStatus:  account.StatusActive,
		User: account.User{
			Email:         fmt.Sprintf("user%d@bbbank.test", i),
			PhoneNumber:   fmt.Sprintf("100-%04d", i),
			ProfilePicURL: fmt.Sprintf("https://bbbank.test/pics/%d.png", i),
		},
	}
}

// Numbers extracts account numbers in order.
func Numbers(accounts []account.Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.AccountNumber
	}
	return out
}

// RunConformance checks the pagination contract against a fresh, empty store
// returned by newStore. The store is closed when each subtest ends.
func RunConformance(t *testing.T, newStore func(t *testing.T) store.AppendStore) {
	t.Helper()

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		count, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected count 0, got %d", count)
		}

		got, err := s.Slice(ctx, 0, 10)
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected empty slice, got %d", len(got))
		}
	})

	t.Run("window and natural order", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.Append(ctx, Accounts(25)...); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		count, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 25 {
			t.Fatalf("Expected count 25, got %d", count)
		}

		got, err := s.Slice(ctx, 20, 10)
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}
		want := []string{"A21", "A22", "A23", "A24", "A25"}
		assertNumbers(t, want, Numbers(got))

		first, _ := s.Slice(ctx, 0, 10)
		second, _ := s.Slice(ctx, 10, 10)
		all := append(Numbers(first), Numbers(second)...)
		assertNumbers(t, Numbers(Accounts(20)), all)

		if !got[0].CurrentBalance.Equal(decimal.NewFromInt(2100)) {
			t.Errorf("Expected balance 2100, got %s", got[0].CurrentBalance)
		}
		if got[0].User.PhoneNumber != "100-0021" {
			t.Errorf("Expected phone 100-0021, got %s", got[0].User.PhoneNumber)
		}
	})

	t.Run("offset past end", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.Append(ctx, Accounts(5)...); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got, err := s.Slice(ctx, 5, 10)
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected empty slice, got %v", Numbers(got))
		}
	})

	t.Run("invalid window", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if _, err := s.Slice(context.Background(), -1, 10); err == nil {
			t.Error("Expected error for negative offset")
		}
		if _, err := s.Slice(context.Background(), 0, 0); err == nil {
			t.Error("Expected error for zero limit")
		}
	})

	t.Run("duplicate account number", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.Append(ctx, Accounts(3)...); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		dup := Numbered(2)
		dup.ID = "other"
		err := s.Append(ctx, Numbered(4), dup)
		if !store.IsDuplicate(err) {
			t.Fatalf("Expected duplicate error, got %v", err)
		}

		count, _ := s.Count(ctx)
		if count != 3 {
			t.Errorf("Expected rejected batch to leave count 3, got %d", count)
		}
	})
}

func assertNumbers(t *testing.T, want, got []string) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}
