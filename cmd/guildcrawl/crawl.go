package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/crawl"
	"github.com/nao1215/guildcrawl/internal/log"
	"github.com/nao1215/guildcrawl/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl group memberships starting from a list of names",
		Long: `Crawl resolves every name of the seed list to an identity, looks up the
group of that identity and collects the ids of all group members.

Each group is expanded once. Progress is saved after every name; running the
same command again resumes from the last checkpoint. When the crawl
completes, the sorted ids are written to the output file, one per line.

Examples:
  # Crawl with defaults (state and output in the data directory)
  guildcrawl crawl --seeds names.txt --key-file api_key.txt

  # Use SQLite for state and keep a run history
  guildcrawl crawl -s names.txt -k api_key.txt --state-backend sqlite

  # Faster membership endpoint, more workers, metrics on :9090
  guildcrawl crawl -s names.txt -k api_key.txt -w 10 \
    --membership-rate 2 --metrics-addr :9090

Configuration file (.guildcrawl) example:
  seed_file: names.txt
  key_file: api_key.txt
  workers: 5
  membership:
    rate: 2
    period: 1s
  retry:
    backoff: 500ms
    throttle_threshold: 50`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Input flags
	cmd.Flags().StringP("seeds", "s", "", "Seed list file, one name per line")
	cmd.Flags().StringP("key-file", "k", "", "File holding the membership API key on its first line")

	// Output flags
	cmd.Flags().StringP("output", "o", "", "Artifact file for collected ids (default: ids.txt in the data directory)")
	cmd.Flags().String("log-file", "", "Append-only log file (default: guildcrawl.log in the data directory)")
	addStateFlags(cmd)

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of names processed concurrently")
	cmd.Flags().Int("identity-rate", config.DefaultRate, "Identity requests per period")
	cmd.Flags().Duration("identity-period", config.DefaultPeriod, "Identity rate limit period")
	cmd.Flags().Int("membership-rate", config.DefaultRate, "Membership requests per period")
	cmd.Flags().Duration("membership-period", config.DefaultPeriod, "Membership rate limit period")
	cmd.Flags().Int("burst", config.DefaultBurst, "Requests admitted back to back by each limiter")
	cmd.Flags().String("identity-endpoint", "", "Identity URL template containing {name}")
	cmd.Flags().String("membership-endpoint", "", "Membership URL template containing {id}")

	// Retry flags
	cmd.Flags().Int("max-attempts", 0, "Attempts per request while throttled (default 1000)")
	cmd.Flags().Duration("backoff", 0, "Wait after a throttled response (default 500ms)")
	cmd.Flags().Int("throttle-threshold", 0, "Consecutive throttled responses that stop the crawl (default 50)")
	cmd.Flags().Duration("call-timeout", 0, "Timeout of a single request (default 30s)")

	// Network and observability flags
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().String("user-agent", "", "User-Agent header")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var logFile io.Writer
	if cfg.LogFile != "" {
		f, err := log.OpenLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logFile = f
	}
	logger := log.NewCrawlLogger(cmd.ErrOrStderr(), logFile, cfg.Verbose, cfg.APIKey)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := startMetrics(ctx, cfg.MetricsAddr, logger)
	if err != nil {
		return err
	}

	store, _, err := crawl.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close checkpoint store", "error", err)
		}
	}()

	orchestrator, err := crawl.New(cfg, store,
		crawl.WithLogger(logger),
		crawl.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(ctx)
	printResult(cmd.OutOrStdout(), cfg, result, err)
	return err
}

// buildCrawlConfig layers the crawl flags over loadConfig and reads the API key.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	for name, dst := range map[string]*string{
		"seeds":               &cfg.SeedFile,
		"key-file":            &cfg.APIKeyFile,
		"output":              &cfg.OutputFile,
		"log-file":            &cfg.LogFile,
		"identity-endpoint":   &cfg.IdentityEndpoint,
		"membership-endpoint": &cfg.MembershipEndpoint,
		"proxy":               &cfg.ProxyAddress,
		"user-agent":          &cfg.UserAgent,
		"metrics-addr":        &cfg.MetricsAddr,
	} {
		if err := overrideString(cmd, name, dst); err != nil {
			return nil, err
		}
	}

	for name, dst := range map[string]*int{
		"workers":            &cfg.Workers,
		"identity-rate":      &cfg.IdentityRate,
		"membership-rate":    &cfg.MembershipRate,
		"burst":              &cfg.RateBurst,
		"max-attempts":       &cfg.MaxAttempts,
		"throttle-threshold": &cfg.ThrottleThreshold,
	} {
		if err := overrideInt(cmd, name, dst); err != nil {
			return nil, err
		}
	}

	for name, dst := range map[string]*time.Duration{
		"identity-period":   &cfg.IdentityPeriod,
		"membership-period": &cfg.MembershipPeriod,
		"backoff":           &cfg.Backoff,
		"call-timeout":      &cfg.CallTimeout,
	} {
		if err := overrideDuration(cmd, name, dst); err != nil {
			return nil, err
		}
	}

	if cfg.SeedFile == "" {
		return nil, fmt.Errorf("configuration error: %w", config.ErrNoSeedFile)
	}
	cfg.APIKey, err = config.LoadAPIKey(cfg.APIKeyFile)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// startMetrics registers the crawl collectors and, when addr is set, serves
// them until ctx is done.
func startMetrics(ctx context.Context, addr string, logger *slog.Logger) (*metrics.Metrics, error) {
	if addr == "" {
		return metrics.Discard(), nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	go func() {
		if err := metrics.Serve(ctx, addr, reg, logger); err != nil {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return m, nil
}

// printResult writes a one-paragraph summary of the run.
func printResult(w io.Writer, cfg *config.Config, result crawl.Result, err error) {
	p := result.Progress
	switch exitCode(err) {
	case exitOK:
		fmt.Fprintf(w, "Crawl complete in %s: %d names, %d groups, %d ids\n",
			result.Elapsed.Round(time.Millisecond), p.Total, p.VisitedGroups, p.CollectedIDs)
		fmt.Fprintf(w, "Ids written to %s\n", result.OutputFile)
	case exitCircuitOpen, exitInterrupted:
		fmt.Fprintf(w, "Crawl stopped at [%d/%d]; checkpoint saved to %s\n",
			p.Finished, p.Total, cfg.StateLocation())
		fmt.Fprintln(w, "Run the same command again to resume.")
	}
}

// contextOf returns the command context, or Background when it has none.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
