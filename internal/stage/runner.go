package stage

import (
	"context"
	"fmt"
	"os"
	"time"

	"abforge/internal/artifact"
)

// Request is the resolved input of one stage invocation. InputDir is unused
// by the generator, whose input is the constraints record instead.
type Request struct {
	InputDir      string
	OutputDir     string
	Constraints   *DesignConstraints
	SeqsPerStruct int
}

// Report is the successful outcome of a stage invocation.
type Report struct {
	Output   artifact.Set
	Duration time.Duration
}

// Runner is the single capability the orchestrator needs from a stage:
// run it and learn what it produced. Tests substitute fakes; production
// wiring uses the three adapters in this package.
type Runner interface {
	Name() string
	Run(ctx context.Context, req Request) (Report, error)
}

// ToolConfig describes how one external stage tool is launched.
type ToolConfig struct {
	// Runner is the argv prefix that launches the tool's interpreter,
	// e.g. ["poetry", "run", "python"].
	Runner []string

	// Script is the path of the stage's entry script.
	Script string

	// Namespace is the tool's module namespace, probed by the readiness
	// precheck's import-health pass.
	Namespace string

	// Timeout bounds the stage process. Zero means unbounded.
	Timeout time.Duration
}

// argv assembles the full command line: runner prefix, script, stage args.
func (tc ToolConfig) argv(args ...string) (binary string, full []string, err error) {
	if len(tc.Runner) == 0 {
		return "", nil, fmt.Errorf("stage tool has no runner configured")
	}
	full = append(full, tc.Runner[1:]...)
	full = append(full, tc.Script)
	full = append(full, args...)
	return tc.Runner[0], full, nil
}

// requireFile checks an input artifact exists before a stage launches, so a
// bad input fails the stage before anything is written to its output dir.
func requireFile(role, path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &MissingArtifactError{Role: role, Path: path}
	}
	return nil
}

// requireInput resolves a stage's input directory and checks it holds at
// least one structure file.
func requireInput(role, dir string) (artifact.Set, error) {
	set, err := artifact.Glob(dir)
	if err != nil {
		return artifact.Set{}, err
	}
	if set.Empty() {
		return artifact.Set{}, &MissingArtifactError{Role: role, Path: dir}
	}
	return set, nil
}

// verifyOutput guards against silent no-op runs: a zero exit with an empty
// output glob is still a failure.
func verifyOutput(name, dir string) (artifact.Set, error) {
	set, err := artifact.Glob(dir)
	if err != nil {
		return artifact.Set{}, err
	}
	if set.Empty() {
		return artifact.Set{}, &OutputAbsentError{Stage: name, Dir: dir}
	}
	return set, nil
}
