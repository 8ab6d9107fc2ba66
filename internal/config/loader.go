package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".guildcrawl"

// File represents the structure of the .guildcrawl configuration file.
// Zero values mean "not set" and leave the corresponding default untouched.
// Durations use Go syntax ("500ms", "1s").
type File struct {
	SeedFile     string `yaml:"seed_file,omitempty"`
	KeyFile      string `yaml:"key_file,omitempty"`
	StateBackend string `yaml:"state_backend,omitempty"`
	StateFile    string `yaml:"state_file,omitempty"`
	DBDir        string `yaml:"db_dir,omitempty"`
	OutputFile   string `yaml:"output_file,omitempty"`
	LogFile      string `yaml:"log_file,omitempty"`
	Workers      int    `yaml:"workers,omitempty"`

	Identity   EndpointFile `yaml:"identity,omitempty"`
	Membership EndpointFile `yaml:"membership,omitempty"`
	Burst      int          `yaml:"burst,omitempty"`

	Retry RetryFile `yaml:"retry,omitempty"`

	Proxy       string `yaml:"proxy,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	UserAgent   string `yaml:"user_agent,omitempty"`
	Verbose     bool   `yaml:"verbose,omitempty"`
}

// EndpointFile configures one API endpoint and its rate limit.
type EndpointFile struct {
	URL    string        `yaml:"url,omitempty"`
	Rate   int           `yaml:"rate,omitempty"`
	Period time.Duration `yaml:"period,omitempty"`
}

// RetryFile configures the retry policy shared by both endpoints.
type RetryFile struct {
	MaxAttempts       int           `yaml:"max_attempts,omitempty"`
	Backoff           time.Duration `yaml:"backoff,omitempty"`
	ThrottleThreshold int           `yaml:"throttle_threshold,omitempty"`
	CallTimeout       time.Duration `yaml:"call_timeout,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
// Relative paths inside the file are resolved against the file's directory.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cf.resolvePaths(filepath.Dir(path))
	return &cf, nil
}

// resolvePaths makes relative paths absolute with respect to base.
func (cf *File) resolvePaths(base string) {
	for _, p := range []*string{
		&cf.SeedFile, &cf.KeyFile, &cf.StateFile,
		&cf.DBDir, &cf.OutputFile, &cf.LogFile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Apply copies every value set in the file onto cfg.
func (cf *File) Apply(cfg *Config) {
	setString(&cfg.SeedFile, cf.SeedFile)
	setString(&cfg.APIKeyFile, cf.KeyFile)
	setString(&cfg.StateBackend, cf.StateBackend)
	setString(&cfg.StateFile, cf.StateFile)
	setString(&cfg.DBDir, cf.DBDir)
	setString(&cfg.OutputFile, cf.OutputFile)
	setString(&cfg.LogFile, cf.LogFile)
	setInt(&cfg.Workers, cf.Workers)

	setString(&cfg.IdentityEndpoint, cf.Identity.URL)
	setInt(&cfg.IdentityRate, cf.Identity.Rate)
	setDuration(&cfg.IdentityPeriod, cf.Identity.Period)
	setString(&cfg.MembershipEndpoint, cf.Membership.URL)
	setInt(&cfg.MembershipRate, cf.Membership.Rate)
	setDuration(&cfg.MembershipPeriod, cf.Membership.Period)
	setInt(&cfg.RateBurst, cf.Burst)

	setInt(&cfg.MaxAttempts, cf.Retry.MaxAttempts)
	setDuration(&cfg.Backoff, cf.Retry.Backoff)
	setInt(&cfg.ThrottleThreshold, cf.Retry.ThrottleThreshold)
	setDuration(&cfg.CallTimeout, cf.Retry.CallTimeout)

	setString(&cfg.ProxyAddress, cf.Proxy)
	setString(&cfg.MetricsAddr, cf.MetricsAddr)
	setString(&cfg.UserAgent, cf.UserAgent)
	if cf.Verbose {
		cfg.Verbose = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .guildcrawl in the current directory
// 3. Look for .guildcrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// LoadAPIKey returns the first non-empty line of the key file, trimmed.
// It returns ErrNoAPIKey when path is empty or the file has no such line.
func LoadAPIKey(path string) (string, error) {
	if path == "" {
		return "", ErrNoAPIKey
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided key path is intentional
	if err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if key := strings.TrimSpace(scanner.Text()); key != "" {
			return key, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}
	return "", fmt.Errorf("%w: %s is empty", ErrNoAPIKey, path)
}
