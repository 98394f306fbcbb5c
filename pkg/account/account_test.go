package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_JSONShape(t *testing.T) {
	a := Account{
		ID:             "id-1",
		AccountNumber:  "0001-1001",
		AccountTitle:   "Raas Masood",
		CurrentBalance: decimal.RequireFromString("3500.5"),
		AccountStatus:  StatusInactive,
		User: User{
			Email:         "rassmasood@hotmail.com",
			PhoneNumber:   "555-1234",
			ProfilePicURL: "https://example.com/p.png",
		},
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if _, ok := raw["currentBalance"].(float64); !ok {
		t.Errorf("Expected currentBalance as JSON number, got %T (%s)", raw["currentBalance"], data)
	}
	if raw["accountStatus"] != float64(1) {
		t.Errorf("Expected accountStatus 1, got %v", raw["accountStatus"])
	}
	user, ok := raw["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected user object, got %T", raw["user"])
	}
	for _, key := range []string{"email", "phoneNumber", "profilePicUrl"} {
		if _, ok := user[key]; !ok {
			t.Errorf("Expected user.%s in %s", key, data)
		}
	}

	var back Account
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal into Account failed: %v", err)
	}
	if !back.CurrentBalance.Equal(a.CurrentBalance) {
		t.Errorf("Expected balance %s, got %s", a.CurrentBalance, back.CurrentBalance)
	}
}

func TestStatus_UnmarshalRejectsUnknown(t *testing.T) {
	var s Status
	if err := json.Unmarshal([]byte("7"), &s); err == nil {
		t.Error("Expected error for unknown status")
	}
	if err := json.Unmarshal([]byte(`"active"`), &s); err == nil {
		t.Error("Expected error for string status")
	}
	if err := json.Unmarshal([]byte("0"), &s); err != nil || s != StatusActive {
		t.Errorf("Expected StatusActive, got %v (%v)", s, err)
	}
}

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
	}{
		{
			name:    "valid active",
			account: Account{AccountNumber: "1", CurrentBalance: decimal.NewFromInt(10)},
		},
		{
			name:    "missing number",
			account: Account{AccountNumber: "  "},
			wantErr: true,
		},
		{
			name:    "negative active balance",
			account: Account{AccountNumber: "1", CurrentBalance: decimal.NewFromInt(-1)},
			wantErr: true,
		},
		{
			name:    "negative inactive balance is allowed",
			account: Account{AccountNumber: "1", CurrentBalance: decimal.NewFromInt(-1), AccountStatus: StatusInactive},
		},
		{
			name:    "unknown status",
			account: Account{AccountNumber: "1", AccountStatus: Status(9)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.wantErr {
				if !IsInvalidArgument(err) {
					t.Errorf("Expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestPage_EmptyEncodesArray(t *testing.T) {
	data, err := json.Marshal(Page{ResultCount: 25})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"accounts":[]`) {
		t.Errorf("Expected empty accounts array, got %s", data)
	}
	if !strings.Contains(string(data), `"resultCount":25`) {
		t.Errorf("Expected resultCount 25, got %s", data)
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		count, size, want int
	}{
		{25, 10, 3},
		{20, 10, 2},
		{0, 10, 0},
		{1, 10, 1},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := PageCount(tt.count, tt.size); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.count, tt.size, got, tt.want)
		}
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("wrap: %w", ErrInvalidArgument), CodeInvalidArgument, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ErrStoreUnavailable), CodeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrNetworkFailure, CodeNetworkFailure, http.StatusInternalServerError},
		{errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code := Code(tt.err)
		if code != tt.code {
			t.Errorf("Code(%v) = %s, want %s", tt.err, code, tt.code)
		}
		if status := HTTPStatus(code); status != tt.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, status, tt.status)
		}
		if !errors.Is(ErrorForCode(code), ErrorForCode(tt.code)) {
			t.Errorf("ErrorForCode(%s) mismatch", code)
		}
	}

	if Code(nil) != "" {
		t.Error("Expected empty code for nil error")
	}
}

func TestMessage_HidesInternals(t *testing.T) {
	err := fmt.Errorf("pq: password authentication failed for user %q: %w", "bank", ErrInternal)
	if msg := Message(err); strings.Contains(msg, "pq") {
		t.Errorf("Expected internal details hidden, got %q", msg)
	}
}
