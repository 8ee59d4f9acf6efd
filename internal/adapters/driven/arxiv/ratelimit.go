package arxiv

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// RateLimiter throttles requests with a token bucket and honours
// server-requested backoff after 429 and 503 responses.
type RateLimiter struct {
	mu             sync.Mutex
	limiter        *rate.Limiter
	retryAt        time.Time
	defaultBackoff time.Duration
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given burst.
// defaultBackoff is used when a throttling response carries no Retry-After.
func NewRateLimiter(requestsPerSecond float64, burst int, defaultBackoff time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RateLimiter{
		limiter:        rate.NewLimiter(limit, burst),
		defaultBackoff: defaultBackoff,
	}
}

// Wait blocks until a request may be sent, first honouring any backoff.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordThrottle sets a backoff from the response's Retry-After header.
func (r *RateLimiter) RecordThrottle(resp *http.Response) time.Duration {
	backoff := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), time.Now())
	if backoff <= 0 {
		backoff = r.defaultBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(backoff); until.After(r.retryAt) {
		r.retryAt = until
	}
	return backoff
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now)
	}
	return 0
}
