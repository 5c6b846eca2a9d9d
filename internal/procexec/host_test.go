package procexec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHostExecutor_Success(t *testing.T) {
	e := NewHostExecutor(zaptest.NewLogger(t))

	res, err := e.Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "echo out; echo err 1>&2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Success())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.Killed)
}

func TestHostExecutor_NonZeroExit(t *testing.T) {
	e := NewHostExecutor(zaptest.NewLogger(t))

	res, err := e.Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
}

func TestHostExecutor_MissingBinary(t *testing.T) {
	e := NewHostExecutor(zaptest.NewLogger(t))

	_, err := e.Run(context.Background(), Command{Binary: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
}

func TestHostExecutor_Timeout(t *testing.T) {
	e := NewHostExecutor(zaptest.NewLogger(t))

	res, err := e.Run(context.Background(), Command{
		Binary:  "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestHostExecutor_WorkingDirectory(t *testing.T) {
	e := NewHostExecutor(zaptest.NewLogger(t))
	dir := t.TempDir()

	res, err := e.Run(context.Background(), Command{
		Binary: "pwd",
		Dir:    dir,
	})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(res.Stdout))
}

func TestHostExecutor_OutputTruncation(t *testing.T) {
	e := NewHostExecutor(zaptest.NewLogger(t))
	e.maxOutputBytes = 16

	res, err := e.Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "yes | head -c 1024"},
	})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Stdout, 16)
}

func TestResult_StderrTail(t *testing.T) {
	r := &Result{Stderr: "abcdef"}
	assert.Equal(t, "cdef", r.StderrTail(4))
	assert.Equal(t, "abcdef", r.StderrTail(100))
}

func TestCommand_String(t *testing.T) {
	c := Command{Binary: "python", Args: []string{"run.py", "--flag"}}
	assert.Equal(t, "python run.py --flag", c.String())
}
