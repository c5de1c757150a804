// Package zuper is a read-only client for the Zuper field-service API.
// It only ever fetches job data; there is no write-back to the source system.
package zuper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Sentinel errors for Zuper client failures.
var (
	ErrAuth        = errors.New("zuper authentication failed")
	ErrRateLimited = errors.New("zuper rate limit exceeded")
	ErrUnreachable = errors.New("zuper unreachable")
	ErrTimeout     = errors.New("zuper request timeout")
	ErrMalformed   = errors.New("zuper malformed response")
)

// RateLimitError carries the server's Retry-After hint from a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("zuper rate limit exceeded (retry after %s)", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// JobFilter restricts which jobs a page fetch returns.
type JobFilter struct {
	Category string
}

// JobPage is one page of the upstream jobs listing. Elements are kept as
// raw JSON so that one undecodable record cannot poison the whole page;
// the normalizer decodes them individually.
type JobPage struct {
	Jobs         []json.RawMessage
	TotalRecords int
	TotalPages   int
	CurrentPage  int
}

// Client is the interface for fetching job pages from Zuper.
type Client interface {
	FetchJobPage(ctx context.Context, filter JobFilter, page int) (*JobPage, error)
}

// HTTPClient implements Client against the Zuper HTTP API. Each request
// waits on a token-bucket limiter bounding outbound rate to the configured
// requests-per-minute ceiling, and failed requests are retried per the
// Policy. Safe for concurrent use.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	orgUID   string
	pageSize int
	client   *http.Client
	limiter  *rate.Limiter
	policy   Policy

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates a new Zuper HTTP client.
func NewHTTPClient(baseURL, apiKey, orgUID string, timeout time.Duration, pageSize, requestsPerMinute int, policy Policy) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		orgUID:   orgUID,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		policy:   policy,
		sleep:    sleepCtx,
	}
}

// FetchJobPage fetches one page (1-indexed) of the jobs listing, retrying
// transient failures per the retry policy.
func (c *HTTPClient) FetchJobPage(ctx context.Context, filter JobFilter, page int) (*JobPage, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}

		result, err := c.fetchOnce(ctx, filter, page)
		if err == nil {
			return result, nil
		}
		lastErr = err

		decision := c.policy.Decide(attempt, err)
		if !decision.Retry {
			break
		}
		if err := c.sleep(ctx, decision.Delay); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) fetchOnce(ctx context.Context, filter JobFilter, page int) (*JobPage, error) {
	params := url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(c.pageSize)},
	}
	if filter.Category != "" {
		params.Set("jobCategory", filter.Category)
	}

	u := fmt.Sprintf("%s/organizations/%s/jobs?%s", c.baseURL, url.PathEscape(c.orgUID), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: server error %d", ErrUnreachable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrMalformed, resp.StatusCode)
	}

	var envelope jobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding jobs page: %v", ErrMalformed, err)
	}
	if envelope.TotalPages < 1 {
		return nil, fmt.Errorf("%w: missing pagination metadata", ErrMalformed)
	}

	return &JobPage{
		Jobs:         envelope.Data,
		TotalRecords: envelope.TotalRecords,
		TotalPages:   envelope.TotalPages,
		CurrentPage:  envelope.CurrentPage,
	}, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

// parseRetryAfter reads a delay-seconds Retry-After value; 0 when absent
// or unparsable, letting the policy fall back to its own backoff.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// --- Zuper response types ---

type jobsResponse struct {
	Data         []json.RawMessage `json:"data"`
	TotalRecords int               `json:"total_records"`
	TotalPages   int               `json:"total_pages"`
	CurrentPage  int               `json:"current_page"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
