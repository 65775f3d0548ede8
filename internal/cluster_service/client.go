package cluster_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	pkgotel "github.com/openshift-hyperfleet/hub-clusters/pkg/otel"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/openshift-hyperfleet/hub-clusters/internal/cluster_service"

// httpClient implements the Client interface
type httpClient struct {
	client  *http.Client
	config  *ClientConfig
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
}

// ClientOption is a functional option for configuring the client
type ClientOption func(*httpClient)

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpClient) {
		c.client = client
	}
}

// WithRegion sets the region served by the client
func WithRegion(region string) ClientOption {
	return func(c *httpClient) {
		c.config.Region = region
	}
}

// WithBaseURL sets the base URL of the regional cluster service
func WithBaseURL(baseURL string) ClientOption {
	return func(c *httpClient) {
		c.config.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithDefaultHeader adds a header to all requests
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *httpClient) {
		c.config.DefaultHeaders[key] = value
	}
}

// WithTimeout bounds each attempt
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *httpClient) {
		c.config.Timeout = timeout
	}
}

// WithRetryAttempts sets the number of attempts for reads
func WithRetryAttempts(attempts int) ClientOption {
	return func(c *httpClient) {
		c.config.Retry.Attempts = attempts
	}
}

// WithRetryBackoff sets the retry backoff strategy
func WithRetryBackoff(backoff BackoffStrategy) ClientOption {
	return func(c *httpClient) {
		c.config.Retry.Backoff = backoff
	}
}

// WithBaseDelay sets the base delay for retry backoff
func WithBaseDelay(delay time.Duration) ClientOption {
	return func(c *httpClient) {
		c.config.Retry.BaseDelay = delay
	}
}

// WithMaxDelay caps the delay between attempts, Retry-After included
func WithMaxDelay(delay time.Duration) ClientOption {
	return func(c *httpClient) {
		c.config.Retry.MaxDelay = delay
	}
}

// WithRateLimit caps outgoing requests to perSecond with the given burst
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *httpClient) {
		c.config.RateLimit = perSecond
		c.config.RateBurst = burst
	}
}

// NewClient creates a new regional cluster service client
func NewClient(log logger.Logger, opts ...ClientOption) Client {
	c := &httpClient{
		config: DefaultClientConfig(),
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, ok := c.config.DefaultHeaders["User-Agent"]; !ok {
		c.config.DefaultHeaders["User-Agent"] = version.UserAgent()
	}
	if c.config.RateLimit > 0 {
		burst := c.config.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(c.config.RateLimit), burst)
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	return c
}

func (c *httpClient) BaseURL() string {
	return c.config.BaseURL
}

func (c *httpClient) Region() string {
	return c.config.Region
}

func (c *httpClient) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil)
}

func (c *httpClient) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPatch, c.config.BaseURL+path, data)
}

// attempt is the outcome of one round trip
type attempt struct {
	status     int
	statusText string
	header     http.Header
	body       []byte
	err        error
}

func (a attempt) retryAfter(now time.Time) time.Duration {
	if a.header == nil {
		return 0
	}
	return parseRetryAfter(a.header.Get("Retry-After"), now)
}

// do runs the request under the retry policy. Any non 2xx outcome is
// returned as an APIError describing the last attempt.
func (c *httpClient) do(ctx context.Context, method, target string, body []byte) (*Response, error) {
	ctx = logger.WithRegion(ctx, c.config.Region)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cluster_service "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
			attribute.String("hub_clusters.region", c.config.Region),
		))
	defer span.End()

	maxAttempts := c.config.Retry.AttemptsFor(method)
	start := c.now()
	var last attempt

	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, c.fail(span, method, target, attempt{err: fmt.Errorf("context cancelled: %w", err)}, n, start)
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.fail(span, method, target, attempt{err: fmt.Errorf("rate limiter: %w", err)}, n, start)
			}
		}

		last = c.roundTrip(ctx, method, target, body)
		switch {
		case last.err != nil:
			c.log.Warnf(ctx, "Cluster service request failed (attempt %d/%d): %v", n, maxAttempts, last.err)
		case last.status >= 200 && last.status < 300:
			span.SetAttributes(attribute.Int("http.response.status_code", last.status), attribute.Int("hub_clusters.attempts", n))
			return &Response{
				StatusCode: last.status,
				Header:     last.header,
				Body:       last.body,
				Attempts:   n,
				Duration:   c.now().Sub(start),
			}, nil
		case !retryableStatus(last.status):
			return nil, c.fail(span, method, target, last, n, start)
		default:
			c.log.Warnf(ctx, "Cluster service returned retryable status %d (attempt %d/%d)", last.status, n, maxAttempts)
		}

		if n == maxAttempts {
			break
		}
		delay := c.config.Retry.Delay(n, last.retryAfter(c.now()))
		c.log.Debugf(ctx, "Retrying in %v...", delay)
		select {
		case <-ctx.Done():
			return nil, c.fail(span, method, target, attempt{err: fmt.Errorf("context cancelled during retry: %w", ctx.Err())}, n, start)
		case <-time.After(delay):
		}
	}

	return nil, c.fail(span, method, target, last, maxAttempts, start)
}

func (c *httpClient) fail(span trace.Span, method, target string, last attempt, attempts int, start time.Time) error {
	err := last.err
	if err == nil {
		err = fmt.Errorf("HTTP %d: %s", last.status, last.statusText)
	}
	apiErr := apperrors.NewAPIError(c.config.Region, method, target, last.status, last.statusText, last.body,
		attempts, c.now().Sub(start), err)
	if last.header != nil {
		apiErr.HeaderOperationID = last.header.Get(apperrors.OperationIDHeader)
	}

	if last.status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", last.status))
	}
	span.SetAttributes(attribute.Int("hub_clusters.attempts", attempts))
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Reason())
	return apiErr
}

// roundTrip performs a single HTTP request
func (c *httpClient) roundTrip(ctx context.Context, method, target string, body []byte) attempt {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return attempt{err: fmt.Errorf("failed to create HTTP request: %w", err)}
	}
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	pkgotel.InjectHTTPHeaders(ctx, req.Header)

	c.log.Debugf(ctx, "Cluster service request: %s %s", method, target)
	resp, err := c.client.Do(req)
	if err != nil {
		return attempt{err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return attempt{status: resp.StatusCode, statusText: resp.Status, header: resp.Header,
			err: fmt.Errorf("failed to read response body: %w", err)}
	}
	c.log.Debugf(ctx, "Cluster service response: %s", resp.Status)
	return attempt{status: resp.StatusCode, statusText: resp.Status, header: resp.Header, body: data}
}
