package httputil

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryPolicy is the bounded, observable retry schedule for transient failures.
// Attempt numbers are 1-based; MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// OnRetry is called before sleeping ahead of attempt+1
	OnRetry func(attempt int, delay time.Duration, reason error)
}

// DefaultRetryPolicy returns 3 attempts with 1s, 2s backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

// Delay returns the wait after the given failed attempt
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.InitialDelay <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Schedule lists every delay the policy can produce, in order
func (p RetryPolicy) Schedule() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	delays := make([]time.Duration, 0, p.MaxAttempts-1)
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		delays = append(delays, p.Delay(attempt))
	}
	return delays
}

// RetryError is returned once a transient failure outlives the policy
type RetryError struct {
	Attempts   int
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *RetryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("giving up after %d attempts: HTTP %d", e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// IsRetryableStatus checks if a status code should be retried
func IsRetryableStatus(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// errStatus marks a retryable response status as an error value for OnRetry
var errStatus = errors.New("retryable status")

func statusError(code int) error {
	return fmt.Errorf("%w: HTTP %d", errStatus, code)
}

// retryAfter parses a Retry-After header (seconds or HTTP date)
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
