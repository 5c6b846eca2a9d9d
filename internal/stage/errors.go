package stage

import (
	"errors"
	"fmt"
)

// MissingArtifactError reports a required input file that does not exist.
// Advisory in the readiness precheck, fatal when hit as a stage input.
type MissingArtifactError struct {
	Role string // what the file was supposed to be, e.g. "framework structure"
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing %s: %s", e.Role, e.Path)
}

// ExecutionError reports an external stage process that completed with a
// non-zero exit.
type ExecutionError struct {
	Stage      string
	ExitCode   int
	StderrTail string
}

func (e *ExecutionError) Error() string {
	if e.StderrTail == "" {
		return fmt.Sprintf("stage %s failed with exit code %d", e.Stage, e.ExitCode)
	}
	return fmt.Sprintf("stage %s failed with exit code %d: %s", e.Stage, e.ExitCode, e.StderrTail)
}

// OutputAbsentError reports a stage process that exited zero but produced no
// matching output artifacts. Treated identically to ExecutionError: a silent
// no-op is a failure.
type OutputAbsentError struct {
	Stage string
	Dir   string
}

func (e *OutputAbsentError) Error() string {
	return fmt.Sprintf("stage %s produced no structure files in %s", e.Stage, e.Dir)
}

// IsMissingArtifact reports whether err wraps a MissingArtifactError.
func IsMissingArtifact(err error) bool {
	var target *MissingArtifactError
	return errors.As(err, &target)
}

// IsExecutionFailure reports whether err wraps an ExecutionError.
func IsExecutionFailure(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}

// IsOutputAbsent reports whether err wraps an OutputAbsentError.
func IsOutputAbsent(err error) bool {
	var target *OutputAbsentError
	return errors.As(err, &target)
}
