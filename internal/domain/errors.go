package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Base error types
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrShopNotFound      = fmt.Errorf("shop %w", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrChargeNotFound    = fmt.Errorf("charge %w", ErrNotFound)
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUpstream          = errors.New("upstream error")
	ErrInvalidTransition = errors.New("invalid charge status transition")
)

// UpstreamError is a failed call against the Shopify Admin API
type UpstreamError struct {
	Op         string // Operation that failed (e.g. "get_order", "activate_recurring_charge")
	Shop       string
	StatusCode int // HTTP status returned by Shopify, 0 when the call never got a response
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed for %s (status %d): %v", e.Op, e.Shop, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Shop, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Retryable reports whether the caller may retry the same request later.
// We never retry internally; this only feeds logs and the API response.
func (e *UpstreamError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode >= 500, e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// NewUpstreamError creates a new UpstreamError
func NewUpstreamError(op, shop string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{
		Op:         op,
		Shop:       shop,
		StatusCode: statusCode,
		Err:        err,
	}
}
