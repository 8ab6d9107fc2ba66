package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/guildcrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the job filled in by the
// previous ones.
type Step interface {
	// Do executes the step. A step that determines the job is complete calls
	// job.Finish. Returning an error aborts the job without committing it.
	Do(ctx context.Context, job *model.SeedJob) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order for one seed job.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps until one finishes the job or fails.
//
// Cancellation is checked before each step, so a cancelled job stops
// between requests. The job is not finished on error; it stays unprocessed
// and will be retried by the next crawl.
func (p *Pipeline) Execute(ctx context.Context, job *model.SeedJob) error {
	for _, step := range p.steps {
		if job.IsDone() {
			break
		}

		select {
		case <-ctx.Done():
			p.logger.Debug("pipeline cancelled",
				"step", step.Name(),
				"name", job.Name,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"name", job.Name,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Debug("step aborted",
				"step", step.Name(),
				"name", job.Name,
				"error", err,
			)
			return err
		}

		job.PerformedSteps = append(job.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
