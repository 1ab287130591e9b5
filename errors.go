package flarebypass

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// =============================================================================
// Protection-layer errors
// =============================================================================

// BlockedError indicates a permanent Cloudflare block (access denied / IP
// ban). The block cannot be cleared by solving a challenge, so the request
// is never retried and the solver is never consulted.
type BlockedError struct {
	URL string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("IP blocked by cloudflare on %s", e.URL)
}

// RetriesExceededError indicates the response still classified as a
// challenge after the configured number of attempts.
type RetriesExceededError struct {
	MaxTries int
}

func (e *RetriesExceededError) Error() string {
	return fmt.Sprintf("can't solve challenge: challenge got %d times (max tries exceeded)", e.MaxTries)
}

// SolverUnavailableError indicates the solver endpoint answered with a
// non-200 status. The solver call itself is not retried.
type SolverUnavailableError struct {
	StatusCode int
}

func (e *SolverUnavailableError) Error() string {
	return fmt.Sprintf("solver is unavailable: status_code = %d", e.StatusCode)
}

// SolverProtocolError indicates the solver answered 200 but the body did not
// carry a solution. Both payloads are kept verbatim for debugging.
type SolverProtocolError struct {
	TargetURL string
	Request   string
	Response  string
}

func (e *SolverProtocolError) Error() string {
	return fmt.Sprintf("can't solve challenge: no solution in response for '%s': response: %s on request: %s",
		e.TargetURL, e.Response, e.Request)
}

// IsBlocked reports whether err is (or wraps) a permanent block.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// =============================================================================
// Retryable Errors
// =============================================================================

// retryableErrorPatterns contains error message substrings that indicate retryable errors.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
}

// IsRetryableError checks if the error is temporary and worth retrying with a new proxy.
// Protection-layer errors are never retryable at the transport level.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if IsBlocked(err) {
		return false
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
