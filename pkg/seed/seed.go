// Package seed generates demo accounts and loads them into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"account-grid/pkg/account"
	"account-grid/pkg/logging"
	"account-grid/pkg/store"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNumberSpaceExhausted is returned when no unused account number turns up.
var ErrNumberSpaceExhausted = errors.New("seed: could not generate a unique account number")

const maxAttempts = 10

var (
	firstNames = []string{"Amna", "Bilal", "Chen", "Dana", "Emeka", "Fatima", "Goran", "Hina", "Ivan", "Julia", "Kofi", "Lena", "Musa", "Nadia", "Omar", "Priya"}
	lastNames  = []string{"Ahmed", "Baker", "Costa", "Dubois", "Eze", "Fischer", "Garcia", "Haddad", "Ivanova", "Jensen", "Khan", "Larsen", "Mendes", "Novak"}
)

// Options controls generation.
type Options struct {
	// Seed makes generation reproducible. 0 picks a time-based seed.
	Seed int64

	// Prefix starts every account number; 12 random digits follow
	Prefix string

	// InactiveRatio is the share of accounts generated as Inactive
	InactiveRatio float64

	// MaxBalance bounds balances, in whole currency units
	MaxBalance int64

	// EmailDomain is used for generated email addresses
	EmailDomain string

	// Reserved account numbers are never generated, e.g. ones already stored
	Reserved []string
}

// DefaultOptions returns the default generation options.
func DefaultOptions() Options {
	return Options{
		Prefix:        "13",
		InactiveRatio: 0.2,
		MaxBalance:    250_000,
		EmailDomain:   "bbbank.test",
	}
}

// Generate builds n valid accounts with unique account numbers.
func Generate(n int, opts Options) ([]account.Account, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n must be >= 0, got %d", account.ErrInvalidArgument, n)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.MaxBalance <= 0 {
		opts.MaxBalance = DefaultOptions().MaxBalance
	}
	if opts.EmailDomain == "" {
		opts.EmailDomain = DefaultOptions().EmailDomain
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	// A "maybe seen" answer only costs a reroll, so false positives never
	// produce duplicates.
	seen := bloom.NewWithEstimates(uint(n+len(opts.Reserved)+1), 0.001)
	for _, number := range opts.Reserved {
		seen.AddString(number)
	}

	accounts := make([]account.Account, 0, n)
	for i := 0; i < n; i++ {
		number, err := uniqueNumber(rng, seen, opts.Prefix)
		if err != nil {
			return nil, err
		}

		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("seed: generate id: %w", err)
		}

		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]

		status := account.StatusActive
		if rng.Float64() < opts.InactiveRatio {
			status = account.StatusInactive
		}

		a := account.Account{
			ID:             id.String(),
			AccountNumber:  number,
			AccountTitle:   first + " " + last,
			CurrentBalance: decimal.New(rng.Int63n(opts.MaxBalance*100+1), -2),
			AccountStatus:  status,
			User: account.User{
				Email:         fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), i+1, opts.EmailDomain),
				PhoneNumber:   fmt.Sprintf("%03d-%03d-%04d", 200+rng.Intn(800), rng.Intn(1000), rng.Intn(10000)),
				ProfilePicURL: fmt.Sprintf("https://%s/avatars/%s.png", opts.EmailDomain, id),
			},
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("seed: generated invalid account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, nil
}

func uniqueNumber(rng *rand.Rand, seen *bloom.BloomFilter, prefix string) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		number := fmt.Sprintf("%s%012d", prefix, rng.Int63n(1_000_000_000_000))
		if !seen.TestString(number) {
			seen.AddString(number)
			return number, nil
		}
	}
	return "", ErrNumberSpaceExhausted
}

// Load appends accounts in batches of batchSize and returns how many landed.
// A failed batch stops the load; earlier batches stay written.
func Load(ctx context.Context, appender store.Appender, accounts []account.Account, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	logger := logging.Global().Named("seed")

	loaded := 0
	for start := 0; start < len(accounts); start += batchSize {
		end := start + batchSize
		if end > len(accounts) {
			end = len(accounts)
		}

		if err := appender.Append(ctx, accounts[start:end]...); err != nil {
			logger.Error("batch append failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", end-start),
				zap.Error(err),
			)
			return loaded, fmt.Errorf("seed: append batch at %d: %w", start, err)
		}
		loaded = end

		logger.Debug("batch appended",
			zap.Int("loaded", loaded),
			zap.Int("total", len(accounts)),
		)
	}

	logger.Info("accounts loaded", zap.Int("count", loaded))
	return loaded, nil
}
