package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxOutputBytes bounds captured stdout/stderr per stream. The ML
// stages log per-step diagnostics that can run to tens of megabytes; only
// the tail matters for failure reporting.
const DefaultMaxOutputBytes = 4 << 20

// HostExecutor executes commands directly on the host using os/exec.
type HostExecutor struct {
	log            *zap.Logger
	maxOutputBytes int64
}

// NewHostExecutor creates a host executor with default output limits.
func NewHostExecutor(log *zap.Logger) *HostExecutor {
	return &HostExecutor{
		log:            log,
		maxOutputBytes: DefaultMaxOutputBytes,
	}
}

// Run launches the command and blocks until it exits or the deadline fires.
// A non-zero exit is not an error from Run's perspective: it is reported in
// the Result and classified by the caller. Run errors only when the process
// could not be started at all.
func (e *HostExecutor) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("procexec: binary is required")
	}

	execCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: e.maxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: e.maxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	e.log.Debug("starting process",
		zap.String("command", cmd.String()),
		zap.String("dir", cmd.Dir),
		zap.Duration("timeout", cmd.Timeout))

	result := &Result{ExitCode: -1, StartedAt: time.Now()}
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Truncated = stdoutLimited.truncated || stderrLimited.truncated

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			result.Killed = true
			e.log.Warn("process killed by deadline",
				zap.String("binary", cmd.Binary),
				zap.Duration("timeout", cmd.Timeout))
			return result, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Start failure: binary not found, permission denied, etc.
		return nil, fmt.Errorf("procexec: start %s: %w", cmd.Binary, err)
	}

	result.ExitCode = 0
	e.log.Debug("process finished",
		zap.String("binary", cmd.Binary),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// limitedWriter caps the bytes written through to the underlying writer.
// Overflow is silently discarded; the writer keeps reporting full-length
// writes to avoid short-write errors from os/exec's copier.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return n, err
}
