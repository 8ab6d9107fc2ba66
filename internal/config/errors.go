package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeedFile is returned when no seed list file is specified.
	ErrNoSeedFile = errors.New("no seed file specified: use --seeds or set seed_file in the config file")

	// ErrNoAPIKey is returned when the membership API key is missing or the
	// key file holds no non-empty line.
	ErrNoAPIKey = errors.New("no API key: use --key-file or set key_file in the config file")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidRate is returned when a rate limit has a non-positive count
	// or period.
	ErrInvalidRate = errors.New("invalid rate limit: count and period must be positive")

	// ErrInvalidRetryPolicy is returned when max attempts, backoff, throttle
	// threshold or call timeout is out of range.
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")

	// ErrUnknownStateBackend is returned when the state backend is neither
	// "json" nor "sqlite".
	ErrUnknownStateBackend = errors.New("unknown state backend: must be json or sqlite")

	// ErrNoStateLocation is returned when the selected backend has no path.
	ErrNoStateLocation = errors.New("no state location: state file or database directory is empty")

	// ErrNoOutputFile is returned when the artifact path is empty.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
