package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"account-grid/pkg/account"
	"account-grid/pkg/logging"

	"go.uber.org/zap"
)

// ErrStaleLoad is returned by a load that was overtaken by a newer one.
// Its result is discarded.
var ErrStaleLoad = errors.New("grid: load superseded by a newer request")

// Fetcher loads one page of accounts. *client.Client satisfies it.
type Fetcher interface {
	GetAllAccountsPaginated(ctx context.Context, pageIndex, pageSize int) (*account.Page, error)
}

// Config configures a Controller.
type Config struct {
	// DefaultPageSize is the page size used on mount
	DefaultPageSize int
}

// DefaultConfig returns the default grid configuration.
func DefaultConfig() Config {
	return Config{DefaultPageSize: 10}
}

// Controller owns a grid State and keeps at most one load in flight.
// A newer load cancels the older one; the older one's result never lands.
type Controller struct {
	fetcher Fetcher
	config  Config
	logger  *logging.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewController creates a Controller. Call Mount to load the first page.
func NewController(f Fetcher, config Config) *Controller {
	if config.DefaultPageSize < 1 {
		config.DefaultPageSize = DefaultConfig().DefaultPageSize
	}
	return &Controller{
		fetcher: f,
		config:  config,
		logger:  logging.Global().Named("grid"),
		state:   State{PageSize: config.DefaultPageSize},
	}
}

// Mount resets the grid and loads the first page at the default size.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.state = State{PageSize: c.config.DefaultPageSize}
	c.mu.Unlock()

	return c.LoadPage(ctx, 0, c.config.DefaultPageSize)
}

// LoadPage fetches a page and installs it. Failures are kept in State.Err
// and returned. If another LoadPage starts before this one finishes, this
// one returns ErrStaleLoad and leaves the state alone.
func (c *Controller) LoadPage(ctx context.Context, pageIndex, pageSize int) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Loading = true
	c.mu.Unlock()

	page, err := c.fetcher.GetAllAccountsPaginated(loadCtx, pageIndex, pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()

	if gen != c.gen {
		c.logger.Debug("discarding stale load", logging.Page(pageIndex, pageSize)...)
		return ErrStaleLoad
	}
	c.cancel = nil

	if err != nil {
		c.state = Failed(c.state, err)
		c.logger.Warn("account page load failed", append(logging.Page(pageIndex, pageSize),
			zap.String("code", account.Code(err)),
			zap.Error(err),
		)...)
		return err
	}
	if page == nil {
		err = fmt.Errorf("%w: empty response", account.ErrInternal)
		c.state = Failed(c.state, err)
		return err
	}

	c.state = Loaded(c.state, pageIndex, pageSize, page)
	c.logger.Debug("account page loaded", append(logging.Page(pageIndex, pageSize),
		zap.Int("rows", len(page.Accounts)),
		zap.Int("result_count", page.ResultCount),
	)...)
	return nil
}

// NextPage loads the page after the current one, if there is one.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()

	if s.PageIndex+1 >= PageCount(s) {
		return nil
	}
	return c.LoadPage(ctx, s.PageIndex+1, s.PageSize)
}

// PreviousPage loads the page before the current one, if there is one.
func (c *Controller) PreviousPage(ctx context.Context) error {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()

	if s.PageIndex == 0 {
		return nil
	}
	return c.LoadPage(ctx, s.PageIndex-1, s.PageSize)
}

// ApplyFilter filters the loaded page. It never fails.
func (c *Controller) ApplyFilter(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = ApplyFilter(c.state, term)
}

// SortBy sorts the displayed rows.
func (c *Controller) SortBy(key SortKey, direction Direction) error {
	srt, err := ParseSort(string(key), string(direction))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = SortBy(c.state, srt.Key, srt.Direction)
	return nil
}

// State returns a snapshot that is safe to read while loads continue.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Clone()
}
