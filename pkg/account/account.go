package account

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// currentBalance travels as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the lifecycle state of an account.
type Status int

const (
	// StatusActive means the account can perform transactions.
	StatusActive Status = 0
	// StatusInactive means the account cannot perform transactions.
	StatusInactive Status = 1
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// UnmarshalJSON accepts only the numeric encoding (0 or 1).
func (s *Status) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("account status: %w", err)
	}
	st := Status(n)
	if !st.Valid() {
		return fmt.Errorf("account status: unknown value %d", n)
	}
	*s = st
	return nil
}

// User is the owner summary embedded in every account.
type User struct {
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber"`
	ProfilePicURL string `json:"profilePicUrl"`
}

// Account is a bank account as stored and as sent over the wire.
type Account struct {
	ID             string          `json:"id"`
	AccountNumber  string          `json:"accountNumber"`
	AccountTitle   string          `json:"accountTitle"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	AccountStatus  Status          `json:"accountStatus"`
	User           User            `json:"user"`
}

// Validate checks the invariants a store expects on insert.
// The read path never calls it.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.AccountNumber) == "" {
		return fmt.Errorf("%w: account number is required", ErrInvalidArgument)
	}
	if !a.AccountStatus.Valid() {
		return fmt.Errorf("%w: unknown account status %d", ErrInvalidArgument, int(a.AccountStatus))
	}
	if a.AccountStatus == StatusActive && a.CurrentBalance.IsNegative() {
		return fmt.Errorf("%w: active account %s has negative balance", ErrInvalidArgument, a.AccountNumber)
	}
	return nil
}

// Page is one window of the account collection plus the collection size.
// ResultCount is the store total at query time, not len(Accounts).
type Page struct {
	Accounts    []Account `json:"accounts"`
	ResultCount int       `json:"resultCount"`
}

// MarshalJSON keeps an empty window encoded as [] rather than null.
func (p Page) MarshalJSON() ([]byte, error) {
	type page Page
	out := page(p)
	if out.Accounts == nil {
		out.Accounts = []Account{}
	}
	return json.Marshal(out)
}

// PaginatedPath is the route of the paginated account listing.
const PaginatedPath = "/api/Accounts/GetAllAccountsPaginated"

// PageCount returns how many pages of size pageSize cover resultCount records.
func PageCount(resultCount, pageSize int) int {
	if pageSize <= 0 || resultCount <= 0 {
		return 0
	}
	return (resultCount + pageSize - 1) / pageSize
}
