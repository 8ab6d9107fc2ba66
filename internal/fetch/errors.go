package fetch

import "errors"

var (
	// ErrCircuitOpen is returned once the consecutive-throttle threshold has
	// been reached. It is fatal for the crawl.
	ErrCircuitOpen = errors.New("circuit breaker open: too many consecutive throttled responses")

	// ErrInvalidPolicy is returned when a Policy has non-positive limits.
	ErrInvalidPolicy = errors.New("invalid fetch policy")
)
