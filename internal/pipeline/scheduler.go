package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/state"
)

// DefaultConcurrency is the default number of seed entries in flight.
const DefaultConcurrency = 5

// Committer records finished jobs. *state.CrawlState satisfies it.
type Committer interface {
	Commit(ctx context.Context, job *model.SeedJob) (state.Progress, error)
}

// Scheduler runs seed pipelines concurrently and commits their results.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it bounds the in-flight entries without a dispatcher goroutine,
// and errgroup.WithContext gives us "first fatal error cancels everyone"
// for free.
type Scheduler struct {
	// pipelineFactory creates a new pipeline for each seed entry.
	pipelineFactory func() *Pipeline

	// committer receives every finished job.
	committer Committer

	// concurrency is the maximum number of seed entries in flight.
	concurrency int

	// logger is used for scheduler-level logging.
	logger *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets a custom logger for the scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithConcurrency sets the maximum number of seed entries in flight.
// Non-positive values keep the default.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewScheduler creates a Scheduler.
// The pipelineFactory is called once per seed entry.
func NewScheduler(pipelineFactory func() *Pipeline, committer Committer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		pipelineFactory: pipelineFactory,
		committer:       committer,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Concurrency returns the configured worker bound.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// Run processes seeds[i] for every i in indexes, admitting them in order.
//
// Each finished job is committed before its slot is released. A job
// interrupted by cancellation or a fatal fetch error is not committed. Run
// returns the first fatal error: fetch.ErrCircuitOpen, a commit failure, or
// the context error.
func (s *Scheduler) Run(ctx context.Context, seeds []string, indexes []int) error {
	s.logger.Info("starting crawl",
		"remaining", len(indexes),
		"total", len(seeds),
		"concurrency", s.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	stoppedEarly := false
	for _, idx := range indexes {
		if gctx.Err() != nil {
			stoppedEarly = true
			break
		}

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			job := model.NewSeedJob(idx, seeds[idx])
			s.logger.Debug("processing seed", "name", job.Name, "index", idx+1, "total", len(seeds))

			if err := s.pipelineFactory().Execute(gctx, job); err != nil {
				return err
			}

			// Finished work is committed even when a sibling has just failed.
			progress, err := s.committer.Commit(context.WithoutCancel(gctx), job)
			if err != nil {
				return err
			}

			s.logger.Info("finished seed",
				"name", job.Name,
				"outcome", job.Outcome.String(),
				"progress", fmt.Sprintf("[%d/%d]", progress.Finished, progress.Total),
			)
			return nil
		})
	}

	err := g.Wait()
	if err == nil && stoppedEarly {
		err = ctx.Err()
	}

	s.logger.Info("crawl pass complete",
		"elapsed", time.Since(startTime),
		"error", err,
	)
	return err
}
