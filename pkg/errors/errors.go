package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies an account administration failure.
type ErrorCode string

const (
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded     ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Reserved for optimistic concurrency checks; nothing returns it yet.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

var httpStatusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidCredential: http.StatusBadRequest,
	ErrCodeUnauthenticated:   http.StatusUnauthorized,
	ErrCodeQuotaExceeded:     http.StatusPaymentRequired,
	ErrCodePermissionDenied:  http.StatusForbidden,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// Error is the failure type returned by the account service and its callers.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, New(ErrCodeNotFound, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail attaches a key to the JSON error body.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode is the response status the API uses for this error.
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

func asError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether any *Error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := asError(err)
	return ok && e.Code == code
}

// GetCode returns err's code, or ErrCodeInternal for untyped errors.
func GetCode(err error) ErrorCode {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ErrCodeInternal
}

func GetDetails(err error) map[string]interface{} {
	if e, ok := asError(err); ok {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus falls back to 500 for unknown codes.
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

func PermissionDenied(message string) *Error {
	return New(ErrCodePermissionDenied, message)
}

// QuotaExceeded carries the organization's seat numbers as details.
func QuotaExceeded(current, maximum int) *Error {
	return Newf(ErrCodeQuotaExceeded, "account limit reached (%d of %d)", current, maximum).
		WithDetail("current", current).
		WithDetail("maximum", maximum)
}

func InvalidInput(field, reason string) *Error {
	return Newf(ErrCodeInvalidInput, "invalid %s: %s", field, reason).WithDetail("field", field)
}

func InvalidCredential(reason string) *Error {
	return New(ErrCodeInvalidCredential, reason)
}

func Unauthenticated(message string) *Error {
	return New(ErrCodeUnauthenticated, message)
}

func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

func RateLimitExceeded(retryAfter string) *Error {
	err := New(ErrCodeRateLimitExceeded, "rate limit exceeded")
	if retryAfter != "" {
		err.WithDetail("retry_after", retryAfter)
	}
	return err
}
