package cluster_service

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BackoffStrategy defines the retry backoff strategy
type BackoffStrategy string

const (
	// BackoffExponential doubles the delay after each retry (1s, 2s, 4s, 8s...)
	BackoffExponential BackoffStrategy = "exponential"
	// BackoffLinear increases the delay linearly (1s, 2s, 3s, 4s...)
	BackoffLinear BackoffStrategy = "linear"
	// BackoffConstant uses the same delay between retries
	BackoffConstant BackoffStrategy = "constant"
)

// Default configuration values
const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = BackoffExponential
	DefaultBaseDelay     = 1 * time.Second
	DefaultMaxDelay      = 30 * time.Second
)

// RetryPolicy decides whether and when a failed read is attempted again.
// Edits are never retried: a PATCH that timed out may still have been applied.
type RetryPolicy struct {
	// Attempts is the total number of attempts for a read, at least 1
	Attempts  int
	Backoff   BackoffStrategy
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// AttemptsFor returns how many attempts a request with method may make
func (p RetryPolicy) AttemptsFor(method string) int {
	if method != http.MethodGet || p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Delay returns how long to wait before attempt+1. A Retry-After hint from
// the service is honored up to MaxDelay.
func (p RetryPolicy) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return p.capped(retryAfter)
	}

	var delay time.Duration
	switch p.Backoff {
	case BackoffExponential:
		delay = time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt-1)))
	case BackoffLinear:
		delay = p.BaseDelay * time.Duration(attempt)
	default:
		delay = p.BaseDelay
	}

	// ±10% jitter
	delay += time.Duration(rand.Float64()*0.2*float64(delay) - 0.1*float64(delay))
	return p.capped(delay)
}

func (p RetryPolicy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// retryableStatus reports the statuses worth another read:
// 408, 429 and every 5xx
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return code >= 500 && code < 600
	}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// ClientConfig holds the configuration for the HTTP client of one region
type ClientConfig struct {
	// Region is the region served by BaseURL ("" for the default region)
	Region string
	// BaseURL is the base URL of the regional cluster service
	BaseURL string
	// Timeout bounds a single attempt
	Timeout time.Duration
	Retry   RetryPolicy
	// DefaultHeaders are added to every request, typically Authorization
	DefaultHeaders map[string]string
	// RateLimit caps outgoing requests per second (0 disables limiting)
	RateLimit float64
	// RateBurst is the token bucket size used with RateLimit
	RateBurst int
}

// DefaultClientConfig returns a ClientConfig with default values
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout: DefaultTimeout,
		Retry: RetryPolicy{
			Attempts:  DefaultRetryAttempts,
			Backoff:   DefaultRetryBackoff,
			BaseDelay: DefaultBaseDelay,
			MaxDelay:  DefaultMaxDelay,
		},
		DefaultHeaders: make(map[string]string),
	}
}

// Response is a successful (2xx) answer of a regional cluster service
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Attempts is how many attempts were made (including retries)
	Attempts int
	// Duration is the total time including retries
	Duration time.Duration
}

// Client is the HTTP transport to one regional cluster service. Non 2xx
// answers are returned as *errors.APIError.
type Client interface {
	// Get reads path with query, retrying transient failures
	Get(ctx context.Context, path string, query url.Values) (*Response, error)

	// Patch sends body as JSON to path exactly once
	Patch(ctx context.Context, path string, body interface{}) (*Response, error)

	// BaseURL returns the configured base URL for API requests
	BaseURL() string

	// Region returns the region served by this client
	Region() string
}
