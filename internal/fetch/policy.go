package fetch

import (
	"fmt"
	"time"
)

// Default policy values.
const (
	DefaultMaxAttempts       = 1000
	DefaultBackoff           = 500 * time.Millisecond
	DefaultThrottleThreshold = 50
	DefaultCallTimeout       = 30 * time.Second
)

// Policy holds the retry and circuit-breaker parameters.
type Policy struct {
	// MaxAttempts bounds the attempts for a single fetch. Exhausting it
	// without tripping the breaker yields a Failed outcome.
	MaxAttempts int

	// Backoff is the fixed wait between throttled attempts.
	Backoff time.Duration

	// ThrottleThreshold is the number of consecutive throttled responses,
	// counted across the whole process, that trips the breaker.
	ThrottleThreshold int

	// CallTimeout bounds one HTTP call including the body read.
	// Zero disables the timeout.
	CallTimeout time.Duration
}

// DefaultPolicy returns the policy used by the crawl command.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       DefaultMaxAttempts,
		Backoff:           DefaultBackoff,
		ThrottleThreshold: DefaultThrottleThreshold,
		CallTimeout:       DefaultCallTimeout,
	}
}

// Validate checks that the policy can be used.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.ThrottleThreshold <= 0 {
		return fmt.Errorf("%w: throttle threshold must be positive, got %d", ErrInvalidPolicy, p.ThrottleThreshold)
	}
	if p.Backoff < 0 {
		return fmt.Errorf("%w: backoff must not be negative", ErrInvalidPolicy)
	}
	if p.CallTimeout < 0 {
		return fmt.Errorf("%w: call timeout must not be negative", ErrInvalidPolicy)
	}
	return nil
}
