package query

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"account-grid/pkg/account"
	metricsmemory "account-grid/pkg/metrics/memory"
	"account-grid/pkg/resilience"
	"account-grid/pkg/store"
	"account-grid/pkg/store/memory"
	"account-grid/pkg/store/mock"
	"account-grid/pkg/store/storetest"
)

func newService(t *testing.T, n int) *Service {
	t.Helper()
	s, err := memory.NewMemoryStoreWith("test", storetest.Accounts(n)...)
	if err != nil {
		t.Fatalf("NewMemoryStoreWith failed: %v", err)
	}
	return NewService(s, DefaultConfig())
}

func TestGetPage_LastPartialPage(t *testing.T) {
	svc := newService(t, 25)

	page, err := svc.GetPage(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if page.ResultCount != 25 {
		t.Errorf("Expected resultCount 25, got %d", page.ResultCount)
	}
	want := []string{"A21", "A22", "A23", "A24", "A25"}
	got := storetest.Numbers(page.Accounts)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestGetPage_SizeAndTotal(t *testing.T) {
	svc := newService(t, 25)

	for pageIndex := 0; pageIndex < 5; pageIndex++ {
		for _, pageSize := range []int{1, 4, 10, 25, 100} {
			page, err := svc.GetPage(context.Background(), pageIndex, pageSize)
			if err != nil {
				t.Fatalf("GetPage(%d, %d) failed: %v", pageIndex, pageSize, err)
			}
			if len(page.Accounts) > pageSize {
				t.Errorf("GetPage(%d, %d) returned %d accounts", pageIndex, pageSize, len(page.Accounts))
			}
			if page.ResultCount != 25 {
				t.Errorf("GetPage(%d, %d) resultCount = %d", pageIndex, pageSize, page.ResultCount)
			}
		}
	}
}

func TestGetPage_ConsecutivePagesAreDisjoint(t *testing.T) {
	svc := newService(t, 25)
	all := storetest.Numbers(storetest.Accounts(25))

	for _, n := range []int{1, 3, 7, 10, 12} {
		first, err := svc.GetPage(context.Background(), 0, n)
		if err != nil {
			t.Fatal(err)
		}
		second, err := svc.GetPage(context.Background(), 1, n)
		if err != nil {
			t.Fatal(err)
		}

		seen := make(map[string]bool)
		for _, a := range first.Accounts {
			seen[a.AccountNumber] = true
		}
		for _, a := range second.Accounts {
			if seen[a.AccountNumber] {
				t.Errorf("n=%d: %s appears on both pages", n, a.AccountNumber)
			}
		}

		joined := append(storetest.Numbers(first.Accounts), storetest.Numbers(second.Accounts)...)
		want := all[:2*n]
		if strings.Join(joined, ",") != strings.Join(want, ",") {
			t.Errorf("n=%d: pages 0+1 = %v, want %v", n, joined, want)
		}
	}
}

func TestGetPage_PastEnd(t *testing.T) {
	svc := newService(t, 25)

	for _, pageIndex := range []int{3, 4, 1000} {
		page, err := svc.GetPage(context.Background(), pageIndex, 10)
		if err != nil {
			t.Fatalf("GetPage(%d, 10) failed: %v", pageIndex, err)
		}
		if page.Accounts == nil || len(page.Accounts) != 0 {
			t.Errorf("Expected empty non-nil accounts, got %v", page.Accounts)
		}
		if page.ResultCount != 25 {
			t.Errorf("Expected resultCount 25, got %d", page.ResultCount)
		}
	}
}

func TestGetPage_EmptyStore(t *testing.T) {
	svc := newService(t, 0)

	page, err := svc.GetPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Accounts) != 0 || page.ResultCount != 0 {
		t.Errorf("Expected empty page, got %d accounts, count %d", len(page.Accounts), page.ResultCount)
	}
}

func TestGetPage_InvalidArguments(t *testing.T) {
	m := mock.NewMockStore("mock")
	svc := NewService(m, DefaultConfig())
	uncapped := NewService(m, Config{MaxPageSize: 0})

	tests := []struct {
		name      string
		svc       *Service
		pageIndex int
		pageSize  int
	}{
		{"negative index", svc, -1, 10},
		{"zero size", svc, 0, 0},
		{"negative size", svc, 0, -5},
		{"above max", svc, 0, 1001},
		{"offset overflow", uncapped, math.MaxInt, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.GetPage(context.Background(), tt.pageIndex, tt.pageSize)
			if !errors.Is(err, account.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	if m.CountCalls() != 0 || m.SliceCalls() != 0 {
		t.Errorf("Invalid requests reached the store: count=%d slice=%d", m.CountCalls(), m.SliceCalls())
	}
}

func TestGetPage_MaxPageSizeDisabled(t *testing.T) {
	s, _ := memory.NewMemoryStoreWith("test", storetest.Accounts(3)...)
	svc := NewService(s, Config{MaxPageSize: 0})

	page, err := svc.GetPage(context.Background(), 0, 5000)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Accounts) != 3 {
		t.Errorf("Expected 3 accounts, got %d", len(page.Accounts))
	}
}

func TestGetPage_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		want     error
	}{
		{"unavailable", store.ErrUnavailable, account.ErrStoreUnavailable},
		{"connection refused", errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), account.ErrStoreUnavailable},
		{"timeout", store.ErrTimeout, account.ErrStoreUnavailable},
		{"circuit open", store.ErrCircuitOpen, account.ErrStoreUnavailable},
		{"corrupt row", errors.New("scan account: boom"), account.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(mock.NewFailingStore("mock", tt.storeErr), DefaultConfig())

			page, err := svc.GetPage(context.Background(), 0, 10)
			if page != nil {
				t.Errorf("Expected nil page, got %+v", page)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetPage_CountFailureFailsPage(t *testing.T) {
	m := mock.NewMockStore("mock")
	m.CountFunc = func(ctx context.Context) (int, error) {
		return 0, store.ErrUnavailable
	}
	m.SliceFunc = func(ctx context.Context, offset, limit int) ([]account.Account, error) {
		return storetest.Accounts(limit), nil
	}

	_, err := NewService(m, DefaultConfig()).GetPage(context.Background(), 0, 10)
	if !errors.Is(err, account.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestGetPage_OpenCircuit(t *testing.T) {
	failing := mock.NewFailingStore("pg", errors.New("connection reset by peer"))
	config := resilience.DefaultResilientConfig().WithReadyToTrip(resilience.ConsecutiveFailures(1))
	svc := NewService(resilience.NewStore(failing, config), DefaultConfig())

	for i := 0; i < 3; i++ {
		if _, err := svc.GetPage(context.Background(), 0, 10); !errors.Is(err, account.ErrStoreUnavailable) {
			t.Fatalf("call %d: expected ErrStoreUnavailable, got %v", i, err)
		}
	}

	// Count and slice each reached the store at most once before the breaker opened.
	if calls := failing.CountCalls() + failing.SliceCalls(); calls > 2 {
		t.Errorf("Expected the open circuit to shield the store, got %d calls", calls)
	}
}

func TestGetPage_CancelledContext(t *testing.T) {
	m := mock.NewMockStore("mock")
	svc := NewService(m, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetPage(ctx, 0, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGetPage_ConcurrentIdenticalQueriesShareOneRead(t *testing.T) {
	release := make(chan struct{})
	m := mock.NewMockStore("mock")
	m.CountFunc = func(ctx context.Context) (int, error) { return 25, nil }
	m.SliceFunc = func(ctx context.Context, offset, limit int) ([]account.Account, error) {
		<-release
		return storetest.Accounts(limit), nil
	}

	collector := metricsmemory.NewMemoryCollector()
	svc := NewServiceWithMetrics(m, DefaultConfig(), collector)

	const callers = 5
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	pages := make([]*account.Page, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			pages[i], errs[i] = svc.GetPage(context.Background(), 0, 10)
		}(i)
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if len(pages[i].Accounts) != 10 {
			t.Errorf("caller %d: expected 10 accounts, got %d", i, len(pages[i].Accounts))
		}
	}
	if m.SliceCalls() != 1 {
		t.Errorf("Expected 1 slice call, got %d", m.SliceCalls())
	}

	// Shared results must not alias each other.
	pages[0].Accounts[0].AccountTitle = "changed"
	for i := 1; i < callers; i++ {
		if pages[i].Accounts[0].AccountTitle == "changed" {
			t.Errorf("caller %d sees another caller's mutation", i)
		}
	}

	if got := collector.Snapshot().QueriesByCode["OK"]; got != callers {
		t.Errorf("Expected %d OK queries recorded, got %d", callers, got)
	}
}

func TestGetPage_CallerCancellationDoesNotAbortSharedRead(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	m := mock.NewMockStore("mock")
	m.CountFunc = func(ctx context.Context) (int, error) { return 3, nil }
	m.SliceFunc = func(ctx context.Context, offset, limit int) ([]account.Account, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return storetest.Accounts(3), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	svc := NewService(m, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetPage(ctx, 0, 10)
		firstErr <- err
	}()
	<-entered

	second := make(chan *account.Page, 1)
	go func() {
		page, _ := svc.GetPage(context.Background(), 0, 10)
		second <- page
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected first caller to see context.Canceled, got %v", err)
	}

	close(release)
	select {
	case page := <-second:
		if page == nil || len(page.Accounts) != 3 {
			t.Errorf("Expected second caller to get 3 accounts, got %+v", page)
		}
	case <-time.After(time.Second):
		t.Fatal("second caller did not complete")
	}
}

func TestGetPage_RecordsMetrics(t *testing.T) {
	s, _ := memory.NewMemoryStoreWith("test", storetest.Accounts(5)...)
	collector := metricsmemory.NewMemoryCollector()
	svc := NewServiceWithMetrics(s, DefaultConfig(), collector)

	svc.GetPage(context.Background(), 0, 3)
	svc.GetPage(context.Background(), -1, 3)

	snap := collector.Snapshot()
	if snap.QueriesByCode["OK"] != 1 || snap.QueriesByCode[account.CodeInvalidArgument] != 1 {
		t.Errorf("Unexpected query metrics: %v", snap.QueriesByCode)
	}
	if snap.Returned != 3 {
		t.Errorf("Expected 3 returned accounts, got %d", snap.Returned)
	}
}
