// Package query serves pages of accounts out of a store.
//
// Pages are computed fresh on every call. Identical requests that overlap in
// time share one store round trip; nothing is kept once they return.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"account-grid/pkg/account"
	"account-grid/pkg/logging"
	"account-grid/pkg/metrics"
	"account-grid/pkg/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Config configures the query service.
type Config struct {
	// MaxPageSize rejects larger pageSize values. 0 disables the cap.
	MaxPageSize int
}

// DefaultConfig returns the default query configuration.
func DefaultConfig() Config {
	return Config{MaxPageSize: 1000}
}

// Service answers paginated account queries.
type Service struct {
	store   store.Store
	config  Config
	sf      *singleflight.Group
	metrics metrics.Collector
	logger  *logging.Logger
}

// NewService creates a query service over s.
func NewService(s store.Store, config Config) *Service {
	return NewServiceWithMetrics(s, config, metrics.NoOpCollector{})
}

// NewServiceWithMetrics creates a query service with a custom metrics collector.
func NewServiceWithMetrics(s store.Store, config Config, metricsCollector metrics.Collector) *Service {
	if metricsCollector == nil {
		metricsCollector = metrics.NoOpCollector{}
	}
	if config.MaxPageSize < 0 {
		config.MaxPageSize = 0
	}
	return &Service{
		store:   s,
		config:  config,
		sf:      &singleflight.Group{},
		metrics: metricsCollector,
		logger:  logging.Global().Named("query"),
	}
}

// GetPage returns the accounts in [pageIndex*pageSize, pageIndex*pageSize+pageSize)
// in store order, together with the total number of accounts.
//
// Errors wrap account.ErrInvalidArgument, account.ErrStoreUnavailable or
// account.ErrInternal. A cancelled ctx is returned as ctx.Err().
func (s *Service) GetPage(ctx context.Context, pageIndex, pageSize int) (*account.Page, error) {
	start := time.Now()

	page, err := s.getPage(ctx, pageIndex, pageSize)

	duration := time.Since(start)
	code := account.Code(err)
	if ctx.Err() != nil && account.IsCanceled(err) {
		code = "CANCELED"
	}
	returned := 0
	if page != nil {
		returned = len(page.Accounts)
	}
	s.metrics.RecordQuery(code, returned, duration)

	fields := append(logging.Page(pageIndex, pageSize), zap.Duration("duration", duration))
	switch {
	case err == nil:
		s.logger.Debug("page served", append(fields,
			zap.Int("returned", returned),
			zap.Int("result_count", page.ResultCount),
		)...)
	case code == "CANCELED":
		s.logger.Debug("page query abandoned by caller", append(fields, zap.Error(err))...)
	case account.IsInvalidArgument(err):
		s.logger.Info("page query rejected", append(fields, zap.Error(err))...)
	default:
		s.logger.Error("page query failed", append(fields, zap.String("code", code), zap.Error(err))...)
	}

	return page, err
}

func (s *Service) getPage(ctx context.Context, pageIndex, pageSize int) (*account.Page, error) {
	offset, err := s.window(pageIndex, pageSize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := strconv.Itoa(pageIndex) + ":" + strconv.Itoa(pageSize)

	// The shared call must outlive any single caller giving up.
	shared := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		return s.fetch(shared, offset, pageSize)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		page := res.Val.(*account.Page)
		if res.Shared {
			s.metrics.RecordSharedQuery()
			page = clonePage(page)
		}
		return page, nil
	}
}

// window validates the paging arguments and returns the offset.
func (s *Service) window(pageIndex, pageSize int) (int, error) {
	if pageIndex < 0 {
		return 0, fmt.Errorf("%w: pageIndex must be >= 0, got %d", account.ErrInvalidArgument, pageIndex)
	}
	if pageSize < 1 {
		return 0, fmt.Errorf("%w: pageSize must be >= 1, got %d", account.ErrInvalidArgument, pageSize)
	}
	if s.config.MaxPageSize > 0 && pageSize > s.config.MaxPageSize {
		return 0, fmt.Errorf("%w: pageSize must be <= %d, got %d", account.ErrInvalidArgument, s.config.MaxPageSize, pageSize)
	}
	if pageIndex > math.MaxInt/pageSize {
		return 0, fmt.Errorf("%w: pageIndex %d is out of range for pageSize %d", account.ErrInvalidArgument, pageIndex, pageSize)
	}
	return pageIndex * pageSize, nil
}

func (s *Service) fetch(ctx context.Context, offset, limit int) (*account.Page, error) {
	var (
		count    int
		accounts []account.Account
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx)
		if err != nil {
			return store.WrapError(err, s.store.Name(), "count")
		}
		count = n
		return nil
	})
	g.Go(func() error {
		page, err := s.store.Slice(gctx, offset, limit)
		if err != nil {
			return store.WrapError(err, s.store.Name(), "slice")
		}
		accounts = page
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, mapStoreError(err)
	}

	if accounts == nil {
		accounts = []account.Account{}
	}
	return &account.Page{Accounts: accounts, ResultCount: count}, nil
}

// mapStoreError translates store failures into the account error taxonomy.
func mapStoreError(err error) error {
	switch {
	case store.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", account.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", account.ErrInternal, err)
	}
}

func clonePage(p *account.Page) *account.Page {
	accounts := make([]account.Account, len(p.Accounts))
	copy(accounts, p.Accounts)
	return &account.Page{Accounts: accounts, ResultCount: p.ResultCount}
}
