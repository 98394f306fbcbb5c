package account

import (
	"context"
	"errors"
	"net/http"
)

// Errors surfaced by the query service, the HTTP API and the grid client.
var (
	// ErrInvalidArgument is returned for a bad pageIndex/pageSize or a malformed record
	ErrInvalidArgument = errors.New("account: invalid argument")

	// ErrStoreUnavailable is returned when the backing store cannot be reached
	ErrStoreUnavailable = errors.New("account: store unavailable")

	// ErrNetworkFailure is returned by the client when the API cannot be reached
	ErrNetworkFailure = errors.New("account: network failure")

	// ErrInternal covers every other failure
	ErrInternal = errors.New("account: internal error")
)

// Stable error codes carried in the API error envelope.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeNetworkFailure   = "NETWORK_FAILURE"
	CodeInternal         = "INTERNAL"
)

// IsInvalidArgument checks if err is or wraps ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsStoreUnavailable checks if err is or wraps ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsNetworkFailure checks if err is or wraps ErrNetworkFailure.
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}

// Code maps an error to its envelope code. nil maps to "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	case errors.Is(err, ErrNetworkFailure):
		return CodeNetworkFailure
	default:
		return CodeInternal
	}
}

// ErrorForCode is the inverse of Code. Unknown codes map to ErrInternal.
func ErrorForCode(code string) error {
	switch code {
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeStoreUnavailable:
		return ErrStoreUnavailable
	case CodeNetworkFailure:
		return ErrNetworkFailure
	default:
		return ErrInternal
	}
}

// HTTPStatus returns the response status used for an envelope code.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for an envelope code.
// Internal details never leave the process.
func Message(err error) string {
	switch Code(err) {
	case CodeInvalidArgument:
		return err.Error()
	case CodeStoreUnavailable:
		return "account store is unavailable, retry later"
	default:
		return "internal error"
	}
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse builds the client-safe envelope for err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Code: Code(err), Message: Message(err)}
}
