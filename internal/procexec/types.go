// Package procexec is the lowest-level execution layer of the pipeline.
// Every substantive computation in this system lives in an external process
// (diffusion sampling, sequence design, structure prediction); procexec is
// the single place where those processes are launched and their completion
// status is observed.
package procexec

import (
	"context"
	"time"
)

// Command is the input specification for a single external process run.
type Command struct {
	// Binary is the executable to run (e.g. "poetry", "python").
	Binary string

	// Args are the command-line arguments.
	Args []string

	// Dir is the working directory to execute in. Some external tools
	// (the structure validator in particular) resolve their configuration
	// relative to the process working directory, so this must be honored
	// exactly. If empty, the process inherits the caller's directory.
	Dir string

	// Env holds extra environment variables in KEY=VALUE form. They are
	// merged on top of the host environment.
	Env []string

	// Timeout bounds the process lifetime. Zero means no deadline: the
	// caller blocks until the process exits on its own.
	Timeout time.Duration
}

// String renders the full command line for display and logging.
func (c Command) String() string {
	out := c.Binary
	for _, arg := range c.Args {
		out += " " + arg
	}
	return out
}

// Result describes a completed process run.
type Result struct {
	// ExitCode is the process exit status. -1 when the process never
	// started or was killed before exiting.
	ExitCode int

	// Stdout and Stderr hold captured output, possibly truncated.
	Stdout string
	Stderr string

	// Truncated reports whether output capture hit the size limit.
	Truncated bool

	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration

	// Killed reports whether the process was terminated by the deadline.
	Killed bool
}

// Success reports whether the process exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// StderrTail returns at most n trailing bytes of stderr, for error messages.
func (r *Result) StderrTail(n int) string {
	if len(r.Stderr) <= n {
		return r.Stderr
	}
	return r.Stderr[len(r.Stderr)-n:]
}

// Executor runs external commands. The pipeline stages depend on this
// interface rather than os/exec so tests can substitute a fake.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}
