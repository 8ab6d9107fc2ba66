package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nao1215/guildcrawl/internal/metrics"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Limiter admits calls against one endpoint.
// *ratelimit.Limiter satisfies it.
type Limiter interface {
	Acquire(ctx context.Context) error
	Name() string
}

// Request describes one API call.
type Request struct {
	// URL is the fully expanded request URL. It must not carry credentials;
	// pass those in Header so they never reach the logs.
	URL string

	// Header is added to the request. May be nil.
	Header http.Header
}

// Fetcher performs classified, retried and circuit-broken HTTP calls.
// A single Fetcher is shared by every worker so the breaker sees the
// throttling of the whole process. It is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics

	// mu guards the breaker state.
	mu          sync.Mutex
	consecutive int
	open        bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// New creates a Fetcher using client and policy.
func New(client *http.Client, policy Policy, opts ...Option) (*Fetcher, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		client:  client,
		policy:  policy,
		logger:  slog.Default(),
		metrics: metrics.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch performs req against the endpoint guarded by limiter.
//
// The returned error is non-nil only for conditions that must stop the
// crawl: ErrCircuitOpen, or the context error when ctx was cancelled while
// waiting for the limiter or a backoff. Every other problem is reported as
// a Failed outcome.
func (f *Fetcher) Fetch(ctx context.Context, limiter Limiter, req Request) (Outcome, error) {
	endpoint := limiter.Name()

	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if f.CircuitOpen() {
			return Outcome{}, ErrCircuitOpen
		}

		if err := limiter.Acquire(ctx); err != nil {
			return Outcome{}, err
		}

		start := time.Now()
		outcome := f.do(ctx, req)
		f.metrics.ObserveRequest(endpoint, outcome.Kind.String(), time.Since(start))

		switch outcome.Kind {
		case KindSuccess:
			f.recordSuccess()
			return outcome, nil

		case KindThrottled:
			count, tripped := f.recordThrottle()
			if tripped {
				f.logger.Error("circuit breaker tripped",
					"endpoint", endpoint,
					"consecutive_throttles", count,
					"threshold", f.policy.ThrottleThreshold)
				return Outcome{}, ErrCircuitOpen
			}
			f.logger.Warn("rate limited, retrying",
				"endpoint", endpoint,
				"url", req.URL,
				"attempt", attempt,
				"max_attempts", f.policy.MaxAttempts,
				"consecutive_throttles", count)

			if err := sleepContext(ctx, f.policy.Backoff); err != nil {
				return Outcome{}, err
			}

		default:
			f.logger.Warn("request failed, not retrying",
				"endpoint", endpoint,
				"url", req.URL,
				"status", outcome.StatusCode,
				"reason", outcome.Reason)
			return outcome, nil
		}
	}

	f.logger.Error("gave up after repeated throttling",
		"endpoint", endpoint,
		"url", req.URL,
		"attempts", f.policy.MaxAttempts)
	return Failed(http.StatusTooManyRequests, fmt.Sprintf("gave up after %d attempts", f.policy.MaxAttempts)), nil
}

// do issues a single HTTP call and classifies the result.
func (f *Fetcher) do(ctx context.Context, req Request) Outcome {
	callCtx := context.WithoutCancel(ctx)
	if f.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, f.policy.CallTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Failed(0, fmt.Sprintf("failed to build request: %v", err))
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failed(0, fmt.Sprintf("call timed out after %s", f.policy.CallTimeout))
		}
		return Failed(0, err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return Failed(resp.StatusCode, fmt.Sprintf("failed to read body: %v", err))
		}
		return Success(body)

	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // Drain for connection reuse
		return Throttled()

	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // Drain for connection reuse
		return Failed(resp.StatusCode, resp.Status)
	}
}

// recordSuccess resets the consecutive-throttle counter.
func (f *Fetcher) recordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.consecutive = 0
	f.metrics.SetConsecutiveThrottles(0)
}

// recordThrottle increments the counter and trips the breaker when it
// reaches the threshold. It returns the new count and whether the breaker
// is open.
func (f *Fetcher) recordThrottle() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.consecutive++
	f.metrics.SetConsecutiveThrottles(f.consecutive)
	if f.consecutive >= f.policy.ThrottleThreshold {
		f.open = true
		f.metrics.SetCircuitOpen(true)
	}
	return f.consecutive, f.open
}

// CircuitOpen reports whether the breaker has tripped.
func (f *Fetcher) CircuitOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// ConsecutiveThrottles returns the current consecutive-throttle count.
func (f *Fetcher) ConsecutiveThrottles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consecutive
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
