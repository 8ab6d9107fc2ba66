package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidRate is returned when a limiter is configured with a non-positive
// rate or period.
var ErrInvalidRate = errors.New("invalid rate limit: rate and period must be positive")

// Limiter admits at most Rate operations per Period for a single endpoint.
// It is safe for concurrent use.
type Limiter struct {
	// name identifies the endpoint in logs and metrics.
	name string

	// limiter is the underlying token bucket.
	limiter *rate.Limiter

	// perPeriod and period are kept for reporting.
	perPeriod int
	period    time.Duration
}

// Option configures a Limiter.
type Option func(*options)

type options struct {
	burst int
}

// WithBurst allows up to n admissions back to back before spacing kicks in.
// The default burst is 1, which spaces every admission period/rate apart.
func WithBurst(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.burst = n
		}
	}
}

// New creates a Limiter admitting perPeriod operations every period.
// Admissions are spread evenly: one every period/perPeriod.
func New(name string, perPeriod int, period time.Duration, opts ...Option) (*Limiter, error) {
	if perPeriod <= 0 || period <= 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrInvalidRate)
	}

	o := options{burst: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.burst > perPeriod {
		o.burst = perPeriod
	}

	interval := period / time.Duration(perPeriod)
	return &Limiter{
		name:      name,
		limiter:   rate.NewLimiter(rate.Every(interval), o.burst),
		perPeriod: perPeriod,
		period:    period,
	}, nil
}

// Acquire blocks until the caller is admitted or ctx is done.
// It returns ctx.Err() when the wait was abandoned.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Wait also fails when the deadline would pass before admission.
		return fmt.Errorf("%s limiter: %w", l.name, err)
	}
	return nil
}

// Name returns the endpoint name this limiter guards.
func (l *Limiter) Name() string {
	return l.name
}

// String describes the limit, e.g. "identity: 1 per 1s".
func (l *Limiter) String() string {
	return fmt.Sprintf("%s: %d per %s", l.name, l.perPeriod, l.period)
}
