package precheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"abforge/internal/procexec"
)

type scriptedExecutor struct {
	results map[string]*procexec.Result // keyed by the import namespace
	err     error
}

func (s *scriptedExecutor) Run(_ context.Context, cmd procexec.Command) (*procexec.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	stmt := cmd.Args[len(cmd.Args)-1]
	if res, ok := s.results[stmt]; ok {
		return res, nil
	}
	return &procexec.Result{ExitCode: 0}, nil
}

func touchAll(t *testing.T, dir string, names []string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestChecker_AllPresent(t *testing.T) {
	weights, examples := t.TempDir(), t.TempDir()
	touchAll(t, weights, WeightFiles)
	touchAll(t, examples, ExampleFiles)

	c := NewChecker(&scriptedExecutor{}, zaptest.NewLogger(t), weights, examples,
		[]string{"python"}, []string{"rfantibody.rfdiffusion", "rfantibody.proteinmpnn", "rfantibody.rf2"})
	report := c.Run(context.Background())

	assert.True(t, report.AllOK())
	for _, a := range append(report.Weights, report.Examples...) {
		assert.Equal(t, OK, a.Status, a.Name)
	}
	for _, i := range report.Imports {
		assert.Equal(t, ImportOK, i.Status, i.Namespace)
	}
}

func TestChecker_ReportsMissingWeights(t *testing.T) {
	weights, examples := t.TempDir(), t.TempDir()
	touchAll(t, weights, WeightFiles[:1]) // only the first weight exists
	touchAll(t, examples, ExampleFiles)

	c := NewChecker(&scriptedExecutor{}, zaptest.NewLogger(t), weights, examples,
		[]string{"python"}, nil)
	report := c.Run(context.Background())

	assert.False(t, report.AllOK())
	assert.Equal(t, OK, report.Weights[0].Status)
	assert.Equal(t, Missing, report.Weights[1].Status)
	assert.Equal(t, Missing, report.Weights[2].Status)
}

func TestChecker_OrderInsensitive(t *testing.T) {
	// Permuting the check order must yield the same OK/MISSING set.
	weights, examples := t.TempDir(), t.TempDir()
	touchAll(t, weights, []string{WeightFiles[1]})
	touchAll(t, examples, ExampleFiles)

	statuses := func(report *Report) map[string]Status {
		out := map[string]Status{}
		for _, a := range append(report.Weights, report.Examples...) {
			out[a.Name] = a.Status
		}
		return out
	}

	c := NewChecker(&scriptedExecutor{}, zaptest.NewLogger(t), weights, examples, []string{"python"}, nil)
	first := statuses(c.Run(context.Background()))

	// Reverse the package-level orders for a second pass and restore them.
	reverse := func(s []string) {
		sort.Sort(sort.Reverse(sort.StringSlice(s)))
	}
	origWeights := append([]string{}, WeightFiles...)
	origExamples := append([]string{}, ExampleFiles...)
	reverse(WeightFiles)
	reverse(ExampleFiles)
	t.Cleanup(func() {
		copy(WeightFiles, origWeights)
		copy(ExampleFiles, origExamples)
	})

	second := statuses(c.Run(context.Background()))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("check results depend on ordering (-first +second):\n%s", diff)
	}
}

func TestChecker_ImportErrorContinues(t *testing.T) {
	exec := &scriptedExecutor{results: map[string]*procexec.Result{
		"import rfantibody.proteinmpnn": {ExitCode: 1, Stderr: "ModuleNotFoundError: torch"},
	}}
	c := NewChecker(exec, zaptest.NewLogger(t), t.TempDir(), t.TempDir(),
		[]string{"python"}, []string{"rfantibody.rfdiffusion", "rfantibody.proteinmpnn", "rfantibody.rf2"})
	report := c.Run(context.Background())

	assert.Equal(t, ImportOK, report.Imports[0].Status)
	assert.Equal(t, ImportError, report.Imports[1].Status)
	assert.Contains(t, report.Imports[1].Detail, "ModuleNotFoundError")
	// A plain import failure does not poison later probes.
	assert.Equal(t, ImportOK, report.Imports[2].Status)
}

func TestChecker_InterpreterFailureMarksRestNotReached(t *testing.T) {
	exec := &scriptedExecutor{err: fmt.Errorf("exec: \"poetry\": executable file not found")}
	c := NewChecker(exec, zaptest.NewLogger(t), t.TempDir(), t.TempDir(),
		[]string{"poetry", "run", "python"},
		[]string{"rfantibody.rfdiffusion", "rfantibody.proteinmpnn", "rfantibody.rf2"})
	report := c.Run(context.Background())

	assert.Equal(t, ImportNotReached, report.Imports[0].Status)
	assert.Equal(t, ImportNotReached, report.Imports[1].Status)
	assert.Equal(t, ImportNotReached, report.Imports[2].Status)
	assert.False(t, report.AllOK())
}
