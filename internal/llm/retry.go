package llm

import (
	"net/http"
	"time"
)

// DefaultMaxRetries is the retry budget applied when none is configured:
// two retries, so up to three attempts in total.
const DefaultMaxRetries = 2

// baseBackoff is the delay before the first retry; it doubles per attempt.
const baseBackoff = 600 * time.Millisecond

// RetryPolicy decides whether and when a failed upstream call is retried.
// All decisions are pure functions of the attempt number and the observed
// status code, so they can be tested without timers or network I/O.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns the policy used for upstream chat calls.
// Negative budgets are clamped to zero.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: baseBackoff}
}

// Decision is the next step after a failed upstream attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide maps the outcome of the zero-based attempt to the next step.
// statusCode 0 means the call failed without producing a response (network
// error), which counts as transient. Rate limits and server errors are
// transient; any other status is permanent and never retried.
func (p RetryPolicy) Decide(attempt, statusCode int) Decision {
	if statusCode != 0 && !p.Retryable(statusCode) {
		return Decision{}
	}
	if attempt >= p.MaxRetries {
		return Decision{}
	}
	return Decision{Retry: true, Delay: p.Delay(attempt)}
}

// Retryable reports whether a status code marks a transient failure.
func (p RetryPolicy) Retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// Delay returns the backoff before retrying the zero-based attempt:
// BaseDelay doubled each time (600ms, 1.2s, 2.4s, ...).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.BaseDelay << uint(attempt)
}
