package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/guildcrawl/internal/database"
	"github.com/nao1215/guildcrawl/internal/fetch"
	"github.com/nao1215/guildcrawl/internal/pipeline"
	"github.com/nao1215/guildcrawl/internal/resolver"
	"github.com/nao1215/guildcrawl/internal/transport"
)

// State backends.
const (
	// BackendJSON stores the checkpoint as a single JSON file rewritten
	// atomically on every commit.
	BackendJSON = "json"

	// BackendSQLite stores the checkpoint in a SQLite database and keeps a
	// history of runs.
	BackendSQLite = "sqlite"
)

// Default configuration values.
// The rate limits match the published limits of the default endpoints:
// one identity lookup and one membership lookup per second.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "guildcrawl"

	// DefaultWorkers is the number of seed entries processed concurrently.
	DefaultWorkers = pipeline.DefaultConcurrency

	// DefaultRate is the number of requests admitted per DefaultPeriod on
	// each endpoint.
	DefaultRate = 1

	// DefaultPeriod is the rate limit window.
	DefaultPeriod = time.Second

	// DefaultBurst keeps admissions strictly spaced.
	DefaultBurst = 1

	// DefaultStateBackend is the checkpoint format used when none is given.
	DefaultStateBackend = BackendJSON

	// CheckpointFileName is the JSON checkpoint file name in the data directory.
	CheckpointFileName = "checkpoint.json"

	// LogFileName is the append-only log file name in the data directory.
	LogFileName = "guildcrawl.log"

	// OutputFileName is the artifact file name in the data directory.
	OutputFileName = "ids.txt"
)

// Config holds all configuration options for guildcrawl.
// This struct is populated from the config file and CLI flags and passed
// through the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity, matching the flags one to one.
type Config struct {
	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .guildcrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SeedFile is the newline-delimited list of names to crawl.
	SeedFile string

	// APIKeyFile holds the membership API key on its first non-empty line.
	APIKeyFile string

	// APIKey is loaded from APIKeyFile; it is never read from flags so it
	// does not show up in shell history or process listings.
	APIKey string

	// StateBackend selects the checkpoint store: BackendJSON or BackendSQLite.
	StateBackend string

	// StateFile is the JSON checkpoint path (BackendJSON).
	StateFile string

	// DBDir is the directory holding the SQLite database (BackendSQLite).
	DBDir string

	// OutputFile receives the sorted collected ids when the crawl completes.
	OutputFile string

	// LogFile is the append-only log. Empty disables file logging.
	LogFile string

	// Workers bounds the number of seed entries in flight.
	Workers int

	// IdentityRate and IdentityPeriod limit the identity endpoint.
	IdentityRate   int
	IdentityPeriod time.Duration

	// MembershipRate and MembershipPeriod limit the membership endpoint.
	MembershipRate   int
	MembershipPeriod time.Duration

	// RateBurst is the token bucket size of both limiters.
	RateBurst int

	// IdentityEndpoint is the URL template containing {name}.
	IdentityEndpoint string

	// MembershipEndpoint is the URL template containing {id}.
	MembershipEndpoint string

	// MaxAttempts bounds attempts per request while throttled.
	MaxAttempts int

	// Backoff is the fixed wait after a throttled response.
	Backoff time.Duration

	// ThrottleThreshold is the number of consecutive throttled responses,
	// across all workers, that trips the circuit breaker.
	ThrottleThreshold int

	// CallTimeout bounds one HTTP call.
	CallTimeout time.Duration

	// ProxyAddress routes requests through a SOCKS5 proxy when set.
	ProxyAddress string

	// MetricsAddr exposes Prometheus metrics on this address when set.
	MetricsAddr string

	// UserAgent is sent with every request.
	UserAgent string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (rates, retry policy,
// paths). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	policy := fetch.DefaultPolicy()
	dataDir := XDGDataDir()

	return &Config{
		StateBackend:       DefaultStateBackend,
		StateFile:          filepath.Join(dataDir, CheckpointFileName),
		DBDir:              dataDir,
		OutputFile:         filepath.Join(dataDir, OutputFileName),
		LogFile:            filepath.Join(dataDir, LogFileName),
		Workers:            DefaultWorkers,
		IdentityRate:       DefaultRate,
		IdentityPeriod:     DefaultPeriod,
		MembershipRate:     DefaultRate,
		MembershipPeriod:   DefaultPeriod,
		RateBurst:          DefaultBurst,
		IdentityEndpoint:   resolver.DefaultIdentityEndpoint,
		MembershipEndpoint: resolver.DefaultMembershipEndpoint,
		MaxAttempts:        policy.MaxAttempts,
		Backoff:            policy.Backoff,
		ThrottleThreshold:  policy.ThrottleThreshold,
		CallTimeout:        policy.CallTimeout,
		UserAgent:          transport.DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for guildcrawl.
// On Linux: ~/.local/share/guildcrawl
// On macOS: ~/Library/Application Support/guildcrawl
// On Windows: %LOCALAPPDATA%\guildcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Policy returns the retry policy described by the configuration.
func (c *Config) Policy() fetch.Policy {
	return fetch.Policy{
		MaxAttempts:       c.MaxAttempts,
		Backoff:           c.Backoff,
		ThrottleThreshold: c.ThrottleThreshold,
		CallTimeout:       c.CallTimeout,
	}
}

// StateLocation returns the file or database path holding the checkpoint.
func (c *Config) StateLocation() string {
	if c.StateBackend == BackendSQLite {
		return filepath.Join(c.DBDir, database.FileName)
	}
	return c.StateFile
}

// Validate checks if the configuration is valid for a crawl.
// It returns a specific error describing what is invalid.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.SeedFile == "" {
		return ErrNoSeedFile
	}

	if c.APIKey == "" {
		return ErrNoAPIKey
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.IdentityRate <= 0 || c.IdentityPeriod <= 0 ||
		c.MembershipRate <= 0 || c.MembershipPeriod <= 0 || c.RateBurst <= 0 {
		return ErrInvalidRate
	}

	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRetryPolicy, err)
	}

	if err := c.validateState(); err != nil {
		return err
	}

	if c.OutputFile == "" {
		return ErrNoOutputFile
	}

	return nil
}

// ValidateState checks only the fields needed to locate the checkpoint.
// The status command uses it, as it needs neither seeds nor credentials.
func (c *Config) ValidateState() error {
	return c.validateState()
}

func (c *Config) validateState() error {
	switch c.StateBackend {
	case BackendJSON:
		if c.StateFile == "" {
			return ErrNoStateLocation
		}
	case BackendSQLite:
		if c.DBDir == "" {
			return ErrNoStateLocation
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStateBackend, c.StateBackend)
	}
	return nil
}
