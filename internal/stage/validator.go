package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"abforge/internal/artifact"
	"abforge/internal/procexec"
)

// Validator runs the structure-prediction stage over sequence-designed
// structures, emitting validated structures.
//
// The external predictor resolves its configuration tree relative to the
// process working directory, so the adapter must launch it from configRoot
// rather than the project root.
type Validator struct {
	exec       procexec.Executor
	log        *zap.Logger
	tool       ToolConfig
	configRoot string
}

// NewValidator builds the structure-validation adapter.
func NewValidator(exec procexec.Executor, log *zap.Logger, tool ToolConfig, configRoot string) *Validator {
	return &Validator{exec: exec, log: log, tool: tool, configRoot: configRoot}
}

// Name implements Runner.
func (v *Validator) Name() string { return "rf2" }

// Run implements Runner.
func (v *Validator) Run(ctx context.Context, req Request) (Report, error) {
	in, err := requireInput("structure-validation input", req.InputDir)
	if err != nil {
		return Report{}, err
	}
	if err := artifact.EnsureDir(req.OutputDir); err != nil {
		return Report{}, err
	}

	binary, args, err := v.tool.argv(
		"input.pdb_dir="+req.InputDir,
		"output.pdb_dir="+req.OutputDir,
	)
	if err != nil {
		return Report{}, fmt.Errorf("validator: %w", err)
	}

	v.log.Info("running structure validation", zap.Int("structures", in.Len()))

	res, err := v.exec.Run(ctx, procexec.Command{
		Binary:  binary,
		Args:    args,
		Dir:     v.configRoot,
		Timeout: v.tool.Timeout,
	})
	if err != nil {
		return Report{}, fmt.Errorf("validator: %w", err)
	}
	if !res.Success() {
		return Report{}, &ExecutionError{
			Stage:      v.Name(),
			ExitCode:   res.ExitCode,
			StderrTail: res.StderrTail(500),
		}
	}

	out, err := verifyOutput(v.Name(), req.OutputDir)
	if err != nil {
		return Report{}, err
	}
	v.log.Info("structure validation finished",
		zap.Int("structures", out.Len()),
		zap.Duration("duration", res.Duration))
	return Report{Output: out, Duration: res.Duration}, nil
}
