package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/crosslink/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step against run. A returned error stops the
	// pipeline; per-item failures are handled inside the step.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// afterStep is called after each successful step.
	afterStep func(step string, run *model.Run)
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithAfterStep registers fn to be called after each successful step.
// The CLI uses it to print stage summaries.
func WithAfterStep(fn func(step string, run *model.Run)) Option {
	return func(p *Pipeline) {
		p.afterStep = fn
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
	for _, step := range steps {
		p.AddStep(step)
	}
}

// Execute runs all steps in order and stops on the first error, which is
// also recorded in run. run.Duration is set in every case.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	start := time.Now()
	defer func() {
		run.Duration = time.Since(start)
	}()

	p.logger.Debug("starting pipeline", "steps", p.StepNames())

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			p.fail(run, err)
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "index", i+1, "of", p.StepCount())
		stepStart := time.Now()

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			p.fail(run, err)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"elapsed", time.Since(stepStart),
		)
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
		if p.afterStep != nil {
			p.afterStep(step.Name(), run)
		}
	}
	return nil
}

func (p *Pipeline) fail(run *model.Run, err error) {
	run.Error = err
	run.ErrorMessage = err.Error()
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
