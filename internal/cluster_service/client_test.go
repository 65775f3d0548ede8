package cluster_service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts ...ClientOption) Client {
	return NewClient(logger.NewTestLogger(), opts...)
}

func newServerClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]ClientOption{WithBaseURL(server.URL), WithRegion("eu-west-1"), WithBaseDelay(time.Millisecond)}, opts...)
	return newTestClient(opts...)
}

func TestNewClientOptions(t *testing.T) {
	c := newTestClient(
		WithRegion("eu-west-1"),
		WithBaseURL("https://api.eu-west-1.example.com/"),
		WithTimeout(5*time.Second),
		WithRetryAttempts(5),
		WithRetryBackoff(BackoffLinear),
		WithBaseDelay(2*time.Second),
		WithMaxDelay(10*time.Second),
		WithRateLimit(10, 0),
		WithDefaultHeader("Authorization", "Bearer token"),
	).(*httpClient)

	assert.Equal(t, "eu-west-1", c.Region())
	assert.Equal(t, "https://api.eu-west-1.example.com", c.BaseURL(), "trailing slash is trimmed")
	assert.Equal(t, 5*time.Second, c.config.Timeout)
	assert.Equal(t, RetryPolicy{Attempts: 5, Backoff: BackoffLinear, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second}, c.config.Retry)
	assert.Equal(t, "Bearer token", c.config.DefaultHeaders["Authorization"])
	assert.Equal(t, version.UserAgent(), c.config.DefaultHeaders["User-Agent"])
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst(), "burst is at least one")
}

func TestClientGet(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ClustersPath, r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"items":[]}`))
	}, WithDefaultHeader("Authorization", "Bearer token"))

	resp, err := c.Get(context.Background(), ClustersPath, url.Values{"page": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, resp.Attempts)
	assert.JSONEq(t, `{"items":[]}`, string(resp.Body))
}

func TestClientPatchEncodesJSON(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"properties":{"acm_hub":"true"}}`, string(body))
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.Patch(context.Background(), ClustersPath+"/c1", ClusterPatch{Properties: map[string]string{"acm_hub": "true"}})
	require.NoError(t, err)

	_, err = c.Patch(context.Background(), ClustersPath+"/c1", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode request body")
}

func TestClientRetriesReads(t *testing.T) {
	var calls int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := c.Get(context.Background(), ClustersPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientNeverRetriesEdits(t *testing.T) {
	var calls int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithRetryAttempts(5))

	_, err := c.Patch(context.Background(), ClustersPath+"/c1", ClusterPatch{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	apiErr, ok := apperrors.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 1, apiErr.Attempts)
	assert.Equal(t, http.MethodPatch, apiErr.Method)
}

func TestClientNoRetryOnClientError(t *testing.T) {
	var calls int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set(apperrors.OperationIDHeader, "op-hdr")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"kind":"Error","code":"ACCT-MGMT-11","reason":"Account is not allowed"}`))
	})

	_, err := c.Get(context.Background(), AccountClustersPath, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	apiErr, ok := apperrors.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", apiErr.Region)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Account is not allowed", apiErr.Reason())
	assert.Equal(t, "ACCT-MGMT-11", apiErr.Code())
	assert.Equal(t, "op-hdr", apiErr.OperationID())
}

func TestClientRetriesExhausted(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"reason":"Too many requests"}`))
	}, WithRetryAttempts(2))

	_, err := c.Get(context.Background(), ClustersPath, nil)
	apiErr, ok := apperrors.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 2, apiErr.Attempts)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, "Too many requests", apiErr.Reason())
}

func TestClientConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	c := newTestClient(WithBaseURL(target), WithRetryAttempts(2), WithBaseDelay(time.Millisecond))
	_, err := c.Get(context.Background(), ClustersPath, nil)

	apiErr, ok := apperrors.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Equal(t, 2, apiErr.Attempts)
	assert.Contains(t, apiErr.Reason(), "HTTP request failed")
}

func TestClientTimeout(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, WithTimeout(20*time.Millisecond), WithRetryAttempts(1))

	_, err := c.Get(context.Background(), ClustersPath, nil)
	require.Error(t, err)
	apiErr, ok := apperrors.IsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsTimeout())
}

func TestClientContextCancelled(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, ClustersPath, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClientRateLimit(t *testing.T) {
	var calls int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), ClustersPath, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientHonorsRetryAfter(t *testing.T) {
	var calls int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, WithMaxDelay(30*time.Millisecond))

	start := time.Now()
	_, err := c.Get(context.Background(), ClustersPath, nil)
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, time.Second, "Retry-After is capped by the max delay")
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy{Attempts: 4, Backoff: BackoffExponential, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	assert.Equal(t, 4, p.AttemptsFor(http.MethodGet))
	assert.Equal(t, 1, p.AttemptsFor(http.MethodPatch))
	assert.Equal(t, 1, RetryPolicy{}.AttemptsFor(http.MethodGet))

	tests := []struct {
		name     string
		policy   RetryPolicy
		attempt  int
		expected time.Duration
	}{
		{"exponential_first", p, 1, 100 * time.Millisecond},
		{"exponential_third", p, 3, 400 * time.Millisecond},
		{"exponential_capped", p, 10, time.Second},
		{"linear", RetryPolicy{Backoff: BackoffLinear, BaseDelay: 100 * time.Millisecond}, 3, 300 * time.Millisecond},
		{"constant", RetryPolicy{Backoff: BackoffConstant, BaseDelay: 100 * time.Millisecond}, 5, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := tt.policy.Delay(tt.attempt, 0)
			assert.InDelta(t, float64(tt.expected), float64(delay), float64(tt.expected)*0.11)
		})
	}

	assert.Equal(t, 500*time.Millisecond, p.Delay(1, 500*time.Millisecond), "retry-after is used verbatim")
	assert.Equal(t, time.Second, p.Delay(1, time.Minute), "retry-after is capped")
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("-1", now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

func TestRetryableStatus(t *testing.T) {
	for code, expected := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusGatewayTimeout:      true,
	} {
		assert.Equal(t, expected, retryableStatus(code), "status %d", code)
	}
}
