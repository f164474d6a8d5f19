package internal

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeRateLimited ErrorCode = "rate_limited"
	ErrCodeUpstream    ErrorCode = "upstream_unavailable"
	ErrCodePersistence ErrorCode = "persistence_failure"
	ErrCodeCooldown    ErrorCode = "cooldown_active"
)

// SyncError is the engine-wide failure type. Code drives retry decisions:
// not_found and persistence_failure must never be retried, the upstream
// codes already had their retries spent inside the API client.
type SyncError struct {
	Code       ErrorCode
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func NewSyncError(code ErrorCode, message string, err error) *SyncError {
	return &SyncError{Code: code, Message: message, Err: err}
}

func NewCooldownError(retryAfter time.Duration) *SyncError {
	return &SyncError{
		Code:       ErrCodeCooldown,
		Message:    fmt.Sprintf("cooldown active, retry after %d seconds", int(retryAfter.Seconds()+0.5)),
		RetryAfter: retryAfter,
	}
}

func ErrorCodeOf(err error) ErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return ErrorCodeOf(err) == ErrCodeNotFound
}

// HTTPStatus maps the taxonomy onto response codes for the handler layer.
func HTTPStatus(err error) int {
	switch ErrorCodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited, ErrCodeCooldown:
		return http.StatusTooManyRequests
	case ErrCodeUpstream:
		return http.StatusBadGateway
	case ErrCodePersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
