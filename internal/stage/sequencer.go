package stage

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"abforge/internal/artifact"
	"abforge/internal/procexec"
)

// Sequencer runs the sequence-design stage: for each candidate structure it
// designs a configurable number of sequences, emitting annotated structures.
type Sequencer struct {
	exec    procexec.Executor
	log     *zap.Logger
	tool    ToolConfig
	workDir string
}

// NewSequencer builds the sequence-design adapter.
func NewSequencer(exec procexec.Executor, log *zap.Logger, tool ToolConfig, workDir string) *Sequencer {
	return &Sequencer{exec: exec, log: log, tool: tool, workDir: workDir}
}

// Name implements Runner.
func (s *Sequencer) Name() string { return "proteinmpnn" }

// Run implements Runner.
func (s *Sequencer) Run(ctx context.Context, req Request) (Report, error) {
	in, err := requireInput("sequence-design input", req.InputDir)
	if err != nil {
		return Report{}, err
	}
	if err := artifact.EnsureDir(req.OutputDir); err != nil {
		return Report{}, err
	}

	seqs := req.SeqsPerStruct
	if seqs <= 0 {
		seqs = 1
	}

	binary, args, err := s.tool.argv(
		"-pdbdir", req.InputDir,
		"-outpdbdir", req.OutputDir,
		"-seqs_per_struct", strconv.Itoa(seqs),
	)
	if err != nil {
		return Report{}, fmt.Errorf("sequencer: %w", err)
	}

	s.log.Info("running sequence design",
		zap.Int("structures", in.Len()),
		zap.Int("seqs_per_struct", seqs))

	res, err := s.exec.Run(ctx, procexec.Command{
		Binary:  binary,
		Args:    args,
		Dir:     s.workDir,
		Timeout: s.tool.Timeout,
	})
	if err != nil {
		return Report{}, fmt.Errorf("sequencer: %w", err)
	}
	if !res.Success() {
		return Report{}, &ExecutionError{
			Stage:      s.Name(),
			ExitCode:   res.ExitCode,
			StderrTail: res.StderrTail(500),
		}
	}

	out, err := verifyOutput(s.Name(), req.OutputDir)
	if err != nil {
		return Report{}, err
	}
	s.log.Info("sequence design finished",
		zap.Int("structures", out.Len()),
		zap.Duration("duration", res.Duration))
	return Report{Output: out, Duration: res.Duration}, nil
}
