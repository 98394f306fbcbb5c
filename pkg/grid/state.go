// Package grid holds the client-side account grid: a State value with pure
// transitions, and a Controller that loads pages into it.
//
// Filtering and sorting only ever look at the page that is currently loaded.
package grid

import (
	"fmt"
	"sort"
	"strings"

	"account-grid/pkg/account"
)

// SortKey names a sortable grid column.
type SortKey string

// Sortable columns.
const (
	SortAccountTitle   SortKey = "accountTitle"
	SortAccountNumber  SortKey = "accountNumber"
	SortCurrentBalance SortKey = "currentBalance"
	SortEmail          SortKey = "email"
	SortPhoneNumber    SortKey = "phoneNumber"
	SortAccountStatus  SortKey = "accountStatus"
)

// Direction is a sort direction. DirectionNone shows rows in filter order.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Sort is the active sort of the grid. The zero value means unsorted.
type Sort struct {
	Key       SortKey
	Direction Direction
}

// Active reports whether the sort reorders rows.
func (s Sort) Active() bool {
	return s.Key != "" && (s.Direction == DirectionAsc || s.Direction == DirectionDesc)
}

// ParseSort validates a key/direction pair coming from user input.
func ParseSort(key, direction string) (Sort, error) {
	k := SortKey(key)
	switch k {
	case SortAccountTitle, SortAccountNumber, SortCurrentBalance, SortEmail, SortPhoneNumber, SortAccountStatus:
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort key %q", account.ErrInvalidArgument, key)
	}

	d := Direction(strings.ToLower(direction))
	switch d {
	case "":
		d = DirectionAsc
	case DirectionAsc, DirectionDesc, DirectionNone:
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort direction %q", account.ErrInvalidArgument, direction)
	}
	return Sort{Key: k, Direction: d}, nil
}

// State is everything the grid shows.
type State struct {
	// CurrentPage is the unfiltered page as returned by the last successful load
	CurrentPage []account.Account

	// Displayed is CurrentPage after the filter and the sort
	Displayed []account.Account

	// TotalCount is resultCount from the last successful load
	TotalCount int

	PageIndex int
	PageSize  int

	Filter string
	Sort   Sort

	// Loading is set while a load is in flight
	Loading bool

	// Err is the error of the last load, cleared by the next successful one
	Err error
}

// Loaded installs a freshly fetched page. The filter term and any previous
// error are cleared; an active sort is kept and applied to the new rows.
func Loaded(s State, pageIndex, pageSize int, page *account.Page) State {
	var rows []account.Account
	total := 0
	if page != nil {
		rows = page.Accounts
		total = page.ResultCount
	}

	s.CurrentPage = cloneAccounts(rows)
	s.TotalCount = total
	s.PageIndex = pageIndex
	s.PageSize = pageSize
	s.Filter = ""
	s.Loading = false
	s.Err = nil
	s.Displayed = derive(s.CurrentPage, s.Filter, s.Sort)
	return s
}

// Failed records a load error. Data from the previous load stays on screen.
func Failed(s State, err error) State {
	s.Loading = false
	s.Err = err
	return s
}

// ApplyFilter shows the rows of CurrentPage where any of title, balance,
// email, phone number or account number contains term (case-sensitive).
// The empty term shows the whole page. The active sort is re-applied.
func ApplyFilter(s State, term string) State {
	s.Filter = term
	s.Displayed = derive(s.CurrentPage, s.Filter, s.Sort)
	return s
}

// SortBy reorders Displayed by key. DirectionNone restores filter order.
// Sorting is stable and never touches CurrentPage.
func SortBy(s State, key SortKey, direction Direction) State {
	s.Sort = Sort{Key: key, Direction: direction}
	s.Displayed = derive(s.CurrentPage, s.Filter, s.Sort)
	return s
}

// PageCount is the number of pages of PageSize needed for TotalCount.
func PageCount(s State) int {
	return account.PageCount(s.TotalCount, s.PageSize)
}

// Matches reports whether a passes the grid filter for term.
func Matches(a account.Account, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(a.AccountTitle, term) ||
		strings.Contains(a.CurrentBalance.String(), term) ||
		strings.Contains(a.User.Email, term) ||
		strings.Contains(a.User.PhoneNumber, term) ||
		strings.Contains(a.AccountNumber, term)
}

// Clone returns a copy of s whose slices do not alias s.
func (s State) Clone() State {
	s.CurrentPage = cloneAccounts(s.CurrentPage)
	s.Displayed = cloneAccounts(s.Displayed)
	return s
}

func derive(page []account.Account, term string, srt Sort) []account.Account {
	out := make([]account.Account, 0, len(page))
	for _, a := range page {
		if Matches(a, term) {
			out = append(out, a)
		}
	}

	if !srt.Active() {
		return out
	}
	less := lessFunc(srt.Key)
	if less == nil {
		return out
	}
	if srt.Direction == DirectionDesc {
		sort.SliceStable(out, func(i, j int) bool { return less(out[j], out[i]) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func lessFunc(key SortKey) func(a, b account.Account) bool {
	switch key {
	case SortAccountTitle:
		return func(a, b account.Account) bool { return a.AccountTitle < b.AccountTitle }
	case SortAccountNumber:
		return func(a, b account.Account) bool { return a.AccountNumber < b.AccountNumber }
	case SortCurrentBalance:
		return func(a, b account.Account) bool { return a.CurrentBalance.LessThan(b.CurrentBalance) }
	case SortEmail:
		return func(a, b account.Account) bool { return a.User.Email < b.User.Email }
	case SortPhoneNumber:
		return func(a, b account.Account) bool { return a.User.PhoneNumber < b.User.PhoneNumber }
	case SortAccountStatus:
		return func(a, b account.Account) bool { return a.AccountStatus < b.AccountStatus }
	default:
		return nil
	}
}

func cloneAccounts(in []account.Account) []account.Account {
	if in == nil {
		return nil
	}
	out := make([]account.Account, len(in))
	copy(out, in)
	return out
}
