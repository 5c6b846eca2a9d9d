package job

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"abforge/internal/config"
	"abforge/internal/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.JobsDir = t.TempDir()
	cfg.Generation.DefaultFramework = "/examples/hu-4D5-8_Fv.pdb"
	return cfg
}

func validRequest() DesignRequest {
	return DesignRequest{
		TargetPDB:       "ATOM      1  N   ASN T 305\n",
		HotspotResidues: []string{"T305", "T456"},
	}
}

func waitForStatus(t *testing.T, m *Manager, id string, want Status) Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if j, ok := m.Get(id); ok && j.Status == want {
			return j
		}
		select {
		case <-deadline:
			j, _ := m.Get(id)
			t.Fatalf("job %s never reached %s (now %s)", id, want, j.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManager_RunsJobToCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	run := func(_ context.Context, spec pipeline.RunSpec, progress func(string)) (*pipeline.RunReport, error) {
		runs.Add(1)
		progress("Running structure generation...")
		return &pipeline.RunReport{RunID: spec.RunID, State: pipeline.Completed}, nil
	}
	m := NewManager(testConfig(t), run, zaptest.NewLogger(t))
	m.Start(context.Background())
	defer m.Stop()

	created, err := m.Create(validRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Len(t, created.ID, 8)

	done := waitForStatus(t, m, created.ID, StatusCompleted)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, "Completed successfully", done.Progress)
	assert.True(t, done.Done())
	require.NotNil(t, done.Report)
	assert.Equal(t, pipeline.Completed, done.Report.State)
}

func TestManager_JobFailureIsRecorded(t *testing.T) {
	defer goleak.VerifyNone(t)

	run := func(context.Context, pipeline.RunSpec, func(string)) (*pipeline.RunReport, error) {
		return &pipeline.RunReport{State: pipeline.Failed, FailedStage: "rfdiffusion"},
			fmt.Errorf("pipeline: stage rfdiffusion: exit code 1")
	}
	m := NewManager(testConfig(t), run, zaptest.NewLogger(t))
	m.Start(context.Background())
	defer m.Stop()

	created, err := m.Create(validRequest())
	require.NoError(t, err)

	failed := waitForStatus(t, m, created.ID, StatusFailed)
	assert.Contains(t, failed.Error, "rfdiffusion")
	assert.Contains(t, failed.Progress, "Failed")
}

func TestManager_JobsRunStrictlySequentially(t *testing.T) {
	defer goleak.VerifyNone(t)

	var concurrent, max atomic.Int32
	run := func(context.Context, pipeline.RunSpec, func(string)) (*pipeline.RunReport, error) {
		cur := concurrent.Add(1)
		if cur > max.Load() {
			max.Store(cur)
		}
		time.Sleep(20 * time.Millisecond)
		concurrent.Add(-1)
		return &pipeline.RunReport{State: pipeline.Completed}, nil
	}
	m := NewManager(testConfig(t), run, zaptest.NewLogger(t))
	m.Start(context.Background())
	defer m.Stop()

	var ids []string
	for i := 0; i < 3; i++ {
		j, err := m.Create(validRequest())
		require.NoError(t, err)
		ids = append(ids, j.ID)
	}
	for _, id := range ids {
		waitForStatus(t, m, id, StatusCompleted)
	}
	assert.Equal(t, int32(1), max.Load(), "at most one pipeline may run at a time")
}

func TestManager_CreateRejectsInvalidRequest(t *testing.T) {
	m := NewManager(testConfig(t), nil, zaptest.NewLogger(t))

	_, err := m.Create(DesignRequest{TargetPDB: "ATOM\n"})
	require.Error(t, err, "hotspots are required")

	_, err = m.Create(DesignRequest{HotspotResidues: []string{"T305"}})
	require.Error(t, err, "target is required")

	bad := validRequest()
	bad.DesignLoops = []string{"H3:13-5"}
	_, err = m.Create(bad)
	require.Error(t, err, "inverted loop range")

	bad = validRequest()
	bad.NumDesigns = 99
	_, err = m.Create(bad)
	require.Error(t, err, "design count out of range")
}

func TestManager_ListInCreationOrder(t *testing.T) {
	m := NewManager(testConfig(t), nil, zaptest.NewLogger(t))

	first, err := m.Create(validRequest())
	require.NoError(t, err)
	second, err := m.Create(validRequest())
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestManager_GetUnknownJob(t *testing.T) {
	m := NewManager(testConfig(t), nil, zaptest.NewLogger(t))
	_, ok := m.Get("nope")
	assert.False(t, ok)
}

func TestManager_StopInterruptsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	run := func(ctx context.Context, _ pipeline.RunSpec, _ func(string)) (*pipeline.RunReport, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m := NewManager(testConfig(t), run, zaptest.NewLogger(t))
	m.Start(context.Background())

	_, err := m.Create(validRequest())
	require.NoError(t, err)

	<-started
	m.Stop() // must not hang
}
