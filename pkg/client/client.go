package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"account-grid/pkg/account"
)

// Client provides typed access to the account API for the grid.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL returns the normalised API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an error envelope returned by the API.
// It matches the account sentinel for its code under errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d %s): %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the envelope code back to its account sentinel.
func (e *APIError) Unwrap() error {
	return account.ErrorForCode(e.Code)
}

// GetAllAccountsPaginated fetches one page of accounts.
//
// Transport failures wrap account.ErrNetworkFailure. Error envelopes come
// back as *APIError. A cancelled ctx is returned unchanged.
func (c *Client) GetAllAccountsPaginated(ctx context.Context, pageIndex, pageSize int) (*account.Page, error) {
	q := url.Values{}
	q.Set("pageIndex", strconv.Itoa(pageIndex))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var page account.Page
	if err := c.do(ctx, http.MethodGet, account.PaginatedPath+"?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	if page.Accounts == nil {
		page.Accounts = []account.Account{}
	}
	return &page, nil
}

// GetPage lets the client stand in wherever a page fetcher is expected.
func (c *Client) GetPage(ctx context.Context, pageIndex, pageSize int) (*account.Page, error) {
	return c.GetAllAccountsPaginated(ctx, pageIndex, pageSize)
}

func (c *Client) do(ctx context.Context, method, path string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", account.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return extractError(resp)
	}

	if v == nil {
		return nil
	}
	// A short read is a network failure; a complete body that does not
	// decode is ErrInternal.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: read response: %w", account.ErrNetworkFailure, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode response: %w", account.ErrInternal, err)
	}
	return nil
}

func extractError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		apiErr.Code = codeForStatus(resp.StatusCode)
		return apiErr
	}

	var payload account.ErrorResponse
	if err := json.Unmarshal(data, &payload); err != nil || payload.Code == "" {
		apiErr.Code = codeForStatus(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Code = payload.Code
	apiErr.Message = strings.TrimSpace(payload.Message)
	return apiErr
}

// codeForStatus covers responses that did not come with an envelope,
// e.g. from a proxy in front of the API.
func codeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return account.CodeInvalidArgument
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return account.CodeStoreUnavailable
	default:
		return account.CodeInternal
	}
}
