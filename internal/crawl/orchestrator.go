package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/database"
	"github.com/nao1215/guildcrawl/internal/fetch"
	"github.com/nao1215/guildcrawl/internal/log"
	"github.com/nao1215/guildcrawl/internal/metrics"
	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/pipeline"
	"github.com/nao1215/guildcrawl/internal/ratelimit"
	"github.com/nao1215/guildcrawl/internal/report"
	"github.com/nao1215/guildcrawl/internal/resolver"
	"github.com/nao1215/guildcrawl/internal/seed"
	"github.com/nao1215/guildcrawl/internal/state"
	"github.com/nao1215/guildcrawl/internal/transport"
)

// Result describes how a run ended.
type Result struct {
	// RunID identifies the run in logs and in the run history.
	RunID uuid.UUID

	// Status is one of the database.RunStatus* values.
	Status string

	// Progress holds the counters at the end of the run.
	Progress state.Progress

	// OutputFile is the artifact path; empty unless the crawl completed.
	OutputFile string

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Orchestrator drives one crawl run.
type Orchestrator struct {
	cfg     *config.Config
	store   state.Store
	runs    RunRecorder
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithHTTPClient replaces the HTTP client built from the configuration.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Orchestrator) {
		o.client = client
	}
}

// WithRunRecorder records run start and end. Without it, runs are recorded
// only by the SQLite store.
func WithRunRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) {
		o.runs = r
	}
}

// New creates an Orchestrator that keeps its checkpoint in store.
// cfg must already be validated.
func New(cfg *config.Config, store state.Store, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:     cfg,
		store:   store,
		logger:  slog.Default(),
		metrics: metrics.Discard(),
	}
	if recorder, ok := store.(RunRecorder); ok {
		o.runs = recorder
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		clientOpts := []transport.Option{transport.WithUserAgent(cfg.UserAgent)}
		if cfg.ProxyAddress != "" {
			clientOpts = append(clientOpts, transport.WithProxy(cfg.ProxyAddress))
		}
		client, err := transport.NewHTTPClient(clientOpts...)
		if err != nil {
			return nil, err
		}
		o.client = client
	}
	return o, nil
}

// Run crawls every seed entry not yet recorded in the checkpoint.
//
// It returns ErrInterrupted when ctx is cancelled and fetch.ErrCircuitOpen
// when the breaker trips; in both cases the checkpoint has been saved and
// the Result is still meaningful.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	startTime := time.Now()
	result := Result{RunID: uuid.New(), Status: database.RunStatusFailed}
	logger := o.logger.With("run", result.RunID.String())

	seeds, err := seed.Load(o.cfg.SeedFile)
	if err != nil {
		return result, err
	}

	cp, err := o.store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNoCheckpoint):
		logger.Info("no checkpoint found, starting fresh")
		cp = model.NewCheckpoint()
	case err != nil:
		return result, fmt.Errorf("failed to load checkpoint: %w", err)
	default:
		logger.Info("resuming from checkpoint",
			"processed", cp.ProcessedCount,
			"completed_ahead", len(cp.CompletedAhead),
			"collected", len(cp.CollectedIDs),
		)
	}

	st, err := state.New(cp, len(seeds), o.store,
		state.WithLogger(logger),
		state.WithMetrics(o.metrics),
	)
	if err != nil {
		return result, err
	}

	scheduler, err := o.newScheduler(st, logger)
	if err != nil {
		return result, err
	}

	o.startRun(ctx, logger, result.RunID, len(seeds))

	runErr := scheduler.Run(ctx, seeds, st.Remaining())

	// The store still has to be written when ctx is already cancelled.
	persistCtx := context.WithoutCancel(ctx)
	if err := st.Persist(persistCtx); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			logger.Error("failed to save checkpoint", "error", err)
		}
	}

	switch {
	case runErr == nil:
		result.Status = database.RunStatusCompleted
		if err := report.WriteArtifact(o.cfg.OutputFile, st.Snapshot().CollectedIDs); err != nil {
			result.Status = database.RunStatusFailed
			runErr = err
			break
		}
		result.OutputFile = o.cfg.OutputFile
		logger.Info("crawl complete", "output", o.cfg.OutputFile, "collected", st.Progress().CollectedIDs)
	case errors.Is(runErr, fetch.ErrCircuitOpen):
		result.Status = database.RunStatusCircuitOpen
		log.Fatal(logger, "circuit breaker open, stopping crawl",
			"threshold", o.cfg.ThrottleThreshold,
			"processed", st.Progress().ProcessedCount,
		)
	case ctx.Err() != nil:
		result.Status = database.RunStatusInterrupted
		logger.Warn("crawl interrupted, checkpoint saved", "processed", st.Progress().ProcessedCount)
		runErr = fmt.Errorf("%w: %w", ErrInterrupted, runErr)
	default:
		logger.Error("crawl failed", "error", runErr)
	}

	result.Progress = st.Progress()
	result.Elapsed = time.Since(startTime)
	o.finishRun(persistCtx, logger, result)

	return result, runErr
}

// newScheduler wires limiters, fetcher and resolvers for one run.
func (o *Orchestrator) newScheduler(st *state.CrawlState, logger *slog.Logger) (*pipeline.Scheduler, error) {
	burst := ratelimit.WithBurst(o.cfg.RateBurst)
	identityLimiter, err := ratelimit.New("identity", o.cfg.IdentityRate, o.cfg.IdentityPeriod, burst)
	if err != nil {
		return nil, err
	}
	membershipLimiter, err := ratelimit.New("membership", o.cfg.MembershipRate, o.cfg.MembershipPeriod, burst)
	if err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(o.client, o.cfg.Policy(),
		fetch.WithLogger(logger),
		fetch.WithMetrics(o.metrics),
	)
	if err != nil {
		return nil, err
	}

	identity, err := resolver.NewIdentityResolver(fetcher, identityLimiter, o.cfg.IdentityEndpoint, logger)
	if err != nil {
		return nil, err
	}
	membership, err := resolver.NewMembershipResolver(fetcher, membershipLimiter, o.cfg.MembershipEndpoint, o.cfg.APIKey, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.NewScheduler(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(identity, membership, st, logger)
		},
		st,
		pipeline.WithConcurrency(o.cfg.Workers),
		pipeline.WithSchedulerLogger(logger),
	), nil
}

// startRun records the run start. Failures are logged, not returned: the
// history is informational.
func (o *Orchestrator) startRun(ctx context.Context, logger *slog.Logger, id uuid.UUID, seedTotal int) {
	if o.runs == nil {
		return
	}
	if err := o.runs.StartRun(ctx, id, seedTotal); err != nil {
		logger.Warn("failed to record run start", "error", err)
	}
}

// finishRun records how the run ended.
func (o *Orchestrator) finishRun(ctx context.Context, logger *slog.Logger, result Result) {
	if o.runs == nil {
		return
	}
	err := o.runs.FinishRun(ctx, result.RunID, result.Status,
		result.Progress.ProcessedCount, result.Progress.CollectedIDs)
	if err != nil {
		logger.Warn("failed to record run end", "error", err)
	}
}
