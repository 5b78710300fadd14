// Package resilience provides the retry and circuit-breaker discipline for
// upstream place-search and sentiment calls.
package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// UpstreamError marks an upstream failure as transient and therefore safe to
// retry. RateLimited failures back off longer before the first retry.
type UpstreamError struct {
	Err         error
	StatusCode  int
	RateLimited bool
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Unavailable wraps an error as a transient upstream failure.
func Unavailable(err error, statusCode int) *UpstreamError {
	return &UpstreamError{Err: err, StatusCode: statusCode}
}

// RateLimited wraps an error as a rate-limit rejection.
func RateLimited(err error) *UpstreamError {
	return &UpstreamError{Err: err, StatusCode: http.StatusTooManyRequests, RateLimited: true}
}

// IsTransient reports whether the error chain indicates a failure that is
// safe to retry: an explicit UpstreamError, a network timeout, or a
// connection-level fault.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return true
	}

	// Timeouts are transient, including the deadline the engine itself puts
	// on upstream calls; the caller must surface them as upstream failures,
	// never as zero yield.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether the error chain carries a rate-limit marker.
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.RateLimited
}

// TransientStatus reports whether an HTTP status indicates a retryable
// server-side condition.
func TransientStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
