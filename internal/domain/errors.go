package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrNotConnected is returned when an operation needs a cloud session and none is active
	ErrNotConnected = errors.New("no cloud provider connected")
	// ErrUnsupported is returned for operations a provider cannot perform (e.g. starring on Dropbox)
	ErrUnsupported = errors.New("operation not supported by provider")
	// ErrRateLimited marks a provider 429 that survived the single retry
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrProviderAuth marks a provider 401; the session is torn down, never retried
	ErrProviderAuth = errors.New("provider session expired")
	// ErrInvalidInvite is returned for unknown or already-used invite tokens
	ErrInvalidInvite = errors.New("invite is invalid or has expired")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (client, share, registry)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ProviderError describes a failed call into a cloud-storage provider.
// Status is the provider's HTTP status (0 when unknown).
type ProviderError struct {
	Provider   string
	Op         string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is maps provider statuses onto the rate-limit and auth sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrProviderAuth:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// StatusCode implements the HTTPError interface.
// Provider auth failures surface as 401 so the frontend drops its session indicator.
func (e *ProviderError) StatusCode() int {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusNotFound:
		return e.Status
	}
	return http.StatusBadGateway
}

// RetryAfterOf extracts the provider-supplied retry delay, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.RetryAfter > 0 {
		return perr.RetryAfter, true
	}
	return 0, false
}
