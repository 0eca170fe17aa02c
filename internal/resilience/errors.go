package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError marks a failure that is safe to retry, such as a rate
// limit response, a 5xx from the platform, or a dropped connection.
type TransientError struct {
	Err    error
	Status int
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient (status %d): %s", e.Status, e.Err)
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. status may be zero for non-HTTP failures.
func Transient(err error, status int) *TransientError {
	return &TransientError{Err: err, Status: status}
}

// RetryableStatus reports whether an HTTP status code warrants a retry.
func RetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient reports whether err (or anything in its chain) is retryable.
// Network timeouts and connection failures count even when not explicitly
// wrapped, since HTTP client errors often arrive as opaque strings.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
