package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"abforge/internal/artifact"
	"abforge/internal/stage"
)

// Directory names under a run root. The generation, design and validation
// directories are each written by exactly one stage; the *_input
// directories are populated by the inter-stage transfer so every stage
// reads only from a directory it was explicitly handed.
const (
	GeneratedDir       = "rfdiffusion"
	DesignInputDir     = "proteinmpnn_input"
	DesignedDir        = "proteinmpnn"
	ValidationInputDir = "rf2_input"
	ValidatedDir       = "rf2"
)

// RunSpec describes one end-to-end pipeline invocation.
type RunSpec struct {
	RunID          string
	Dir            string // run root; stage directories are created under it
	Constraints    *stage.DesignConstraints
	SeqsPerStruct  int
	GenerationOnly bool // stop after structure generation
}

// StageOutcome records one stage execution inside a run.
type StageOutcome struct {
	Stage    string
	Output   artifact.Set
	Duration time.Duration
	Err      error
}

// RunReport is the final summary of a run: terminal state, which stage
// failed (if any), and each stage's verified output set.
type RunReport struct {
	RunID       string
	State       State
	FailedStage string
	Stages      []StageOutcome
	Generated   artifact.Set
	Designed    artifact.Set
	Validated   artifact.Set
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Orchestrator wires the three stage runners in strict order with file-set
// hand-offs between them. No retries, no parallelism: stage N+1 starts only
// after stage N's output is verified present.
type Orchestrator struct {
	generator stage.Runner
	sequencer stage.Runner
	validator stage.Runner
	log       *zap.Logger
	progress  func(string)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProgress installs a callback invoked with human-readable status lines
// as the run advances. Used by the job manager to surface progress.
func WithProgress(fn func(string)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// New builds an orchestrator over the given stage runners.
func New(generator, sequencer, validator stage.Runner, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator: generator,
		sequencer: sequencer,
		validator: validator,
		log:       log,
		progress:  func(string) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline to completion or first failure. The report is
// returned in both cases; err is non-nil exactly when the run failed.
func (o *Orchestrator) Run(ctx context.Context, spec RunSpec) (*RunReport, error) {
	report := &RunReport{
		RunID:     spec.RunID,
		State:     NotStarted,
		StartedAt: time.Now(),
	}

	if spec.Dir == "" {
		return report, fmt.Errorf("pipeline: run directory is required")
	}
	for _, sub := range []string{GeneratedDir, DesignInputDir, DesignedDir, ValidationInputDir, ValidatedDir} {
		if err := artifact.EnsureDir(filepath.Join(spec.Dir, sub)); err != nil {
			return report, err
		}
	}

	// Stage 1: structure generation.
	o.progress("Running structure generation...")
	genOut, err := o.runStage(ctx, report, o.generator, Stage1Running, Stage1Done, stage.Request{
		OutputDir:   filepath.Join(spec.Dir, GeneratedDir),
		Constraints: spec.Constraints,
	})
	if err != nil {
		return o.fail(report, o.generator.Name(), err)
	}
	report.Generated = genOut

	if spec.GenerationOnly {
		if err := o.advance(report, Completed); err != nil {
			return report, err
		}
		o.finish(report)
		return report, nil
	}

	// Hand-off 1 -> 2 is strict: a copy failure aborts the run.
	designIn, err := artifact.Transfer(genOut, filepath.Join(spec.Dir, DesignInputDir), true, o.log)
	if err != nil {
		return o.fail(report, o.sequencer.Name(), err)
	}

	// Stage 2: sequence design.
	o.progress("Running sequence design...")
	seqOut, err := o.runStage(ctx, report, o.sequencer, Stage2Running, Stage2Done, stage.Request{
		InputDir:      designIn.Dir,
		OutputDir:     filepath.Join(spec.Dir, DesignedDir),
		SeqsPerStruct: spec.SeqsPerStruct,
	})
	if err != nil {
		return o.fail(report, o.sequencer.Name(), err)
	}
	report.Designed = seqOut

	// Hand-off 2 -> 3 is lenient: per-file copy failures are logged and
	// skipped, and an empty transfer surfaces as a validation input error
	// instead. See DESIGN.md for the asymmetry with hand-off 1 -> 2.
	validationIn, err := artifact.Transfer(seqOut, filepath.Join(spec.Dir, ValidationInputDir), false, o.log)
	if err != nil {
		return o.fail(report, o.validator.Name(), err)
	}

	// Stage 3: structure validation.
	o.progress("Running structure validation...")
	valOut, err := o.runStage(ctx, report, o.validator, Stage3Running, Completed, stage.Request{
		InputDir:  validationIn.Dir,
		OutputDir: filepath.Join(spec.Dir, ValidatedDir),
	})
	if err != nil {
		return o.fail(report, o.validator.Name(), err)
	}
	report.Validated = valOut

	o.finish(report)
	return report, nil
}

// runStage advances into the running state, invokes the runner, verifies
// the outcome and advances into the done state.
func (o *Orchestrator) runStage(ctx context.Context, report *RunReport, r stage.Runner, running, done State, req stage.Request) (artifact.Set, error) {
	if err := o.advance(report, running); err != nil {
		return artifact.Set{}, err
	}

	rep, err := r.Run(ctx, req)
	outcome := StageOutcome{Stage: r.Name(), Output: rep.Output, Duration: rep.Duration, Err: err}
	report.Stages = append(report.Stages, outcome)
	if err != nil {
		return artifact.Set{}, err
	}

	if err := o.advance(report, done); err != nil {
		return artifact.Set{}, err
	}
	return rep.Output, nil
}

// advance performs a validated state transition and emits a status line.
func (o *Orchestrator) advance(report *RunReport, to State) error {
	from := report.State
	if err := transition(&report.State, to); err != nil {
		return err
	}
	o.log.Info("pipeline state",
		zap.String("run_id", report.RunID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

// fail moves the run into the Failed terminal state, recording which stage
// failed and why.
func (o *Orchestrator) fail(report *RunReport, stageName string, cause error) (*RunReport, error) {
	report.State = Failed
	report.FailedStage = stageName
	report.FinishedAt = time.Now()
	o.progress(fmt.Sprintf("Failed at %s: %v", stageName, cause))
	o.log.Error("pipeline failed",
		zap.String("run_id", report.RunID),
		zap.String("stage", stageName),
		zap.Error(cause))
	return report, fmt.Errorf("pipeline: stage %s: %w", stageName, cause)
}

func (o *Orchestrator) finish(report *RunReport) {
	report.FinishedAt = time.Now()
	o.progress("Pipeline completed!")
	o.log.Info("pipeline completed",
		zap.String("run_id", report.RunID),
		zap.Int("generated", report.Generated.Len()),
		zap.Int("designed", report.Designed.Len()),
		zap.Int("validated", report.Validated.Len()),
		zap.String("generated_dir", report.Generated.Dir),
		zap.String("designed_dir", report.Designed.Dir),
		zap.String("validated_dir", report.Validated.Dir))
}
