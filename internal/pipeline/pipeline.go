package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage defines the interface that all pipeline stages must implement.
// Stages are executed in sequence, each consuming the previous stage's
// output file.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows stages to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., skipping, retries)
type Stage interface {
	// Run executes the stage on the given input CSV and returns the path
	// of the CSV it wrote. Failures local to one record or batch should be
	// contained inside the stage; a returned error aborts the pipeline.
	Run(ctx context.Context, inputPath string) (string, error)

	// Name returns the stage's name for logging purposes.
	Name() string
}

// Pipeline executes stages in order, threading each stage's output path
// into the next stage's input.
type Pipeline struct {
	// stages contains the ordered list of stages to execute.
	stages []Stage

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Stages should be added using AddStage after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: make([]Stage, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStage appends a stage to the pipeline.
// Stages are executed in the order they are added.
func (p *Pipeline) AddStage(stage Stage) {
	p.stages = append(p.stages, stage)
}

// AddStages appends multiple stages to the pipeline.
func (p *Pipeline) AddStages(stages ...Stage) {
	p.stages = append(p.stages, stages...)
}

// StageCount returns the number of stages in the pipeline.
func (p *Pipeline) StageCount() int {
	return len(p.stages)
}

// Execute runs all stages in sequence starting from inputPath and returns
// the final stage's output path. The first stage failure aborts the run:
// a broken intermediate file would only poison the stages after it.
// Cancellation is checked between stages; stages handle their own
// timeouts internally.
func (p *Pipeline) Execute(ctx context.Context, inputPath string) (string, error) {
	current := inputPath
	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"stage", stage.Name(),
				"reason", ctx.Err(),
			)
			return current, ctx.Err()
		default:
		}

		p.logger.Info("executing stage",
			"stage", stage.Name(),
			"input", current,
		)

		output, err := stage.Run(ctx, current)
		if err != nil {
			p.logger.Error("stage failed",
				"stage", stage.Name(),
				"input", current,
				"error", err,
			)
			return current, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}

		p.logger.Debug("stage completed",
			"stage", stage.Name(),
			"output", output,
		)
		current = output
	}
	return current, nil
}
