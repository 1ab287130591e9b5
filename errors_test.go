package flarebypass

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp 1.2.3.4:443: connection refused"), true},
		{"eof mid response", errors.New("unexpected EOF"), true},
		{"deadline exceeded", errors.New("context deadline exceeded"), true},
		{"permanent block", &BlockedError{URL: "https://example.com"}, false},
		{"wrapped block", fmt.Errorf("fetch: %w", &BlockedError{URL: "https://example.com"}), false},
		{"retry budget spent", &RetriesExceededError{MaxTries: 2}, false},
		{"unrelated error", errors.New("invalid character in header"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsBlocked(t *testing.T) {
	if !IsBlocked(fmt.Errorf("outer: %w", &BlockedError{URL: "https://example.com"})) {
		t.Error("IsBlocked should unwrap")
	}
	if IsBlocked(errors.New("some other failure")) {
		t.Error("IsBlocked matched an unrelated error")
	}
}

func TestErrorMessages(t *testing.T) {
	blocked := &BlockedError{URL: "https://example.com/a"}
	if got := blocked.Error(); got != "IP blocked by cloudflare on https://example.com/a" {
		t.Errorf("BlockedError message = %q", got)
	}

	exceeded := &RetriesExceededError{MaxTries: 2}
	if got := exceeded.Error(); got != "can't solve challenge: challenge got 2 times (max tries exceeded)" {
		t.Errorf("RetriesExceededError message = %q", got)
	}

	unavailable := &SolverUnavailableError{StatusCode: 502}
	if got := unavailable.Error(); got != "solver is unavailable: status_code = 502" {
		t.Errorf("SolverUnavailableError message = %q", got)
	}
}
