package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"abforge/internal/config"
	"abforge/internal/pipeline"
	"abforge/internal/stage"
)

const (
	// queueCapacity bounds how many jobs can wait behind the running one.
	queueCapacity = 64

	// historySize bounds how many finished jobs stay queryable. Oldest
	// finished jobs are evicted first; pending and running jobs are never
	// evicted.
	historySize = 256
)

// RunFunc executes one prepared pipeline run. The production wiring is the
// orchestrator; tests substitute fakes.
type RunFunc func(ctx context.Context, spec pipeline.RunSpec, progress func(string)) (*pipeline.RunReport, error)

// Manager owns the job queue and the single worker goroutine that drains
// it. Jobs execute strictly one at a time: the pipeline stages are
// GPU-bound external processes that must not overlap.
type Manager struct {
	log *zap.Logger
	cfg *config.Config
	run RunFunc

	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string // creation order, for listing
	history *lru.Cache[string, struct{}]

	queue  chan string
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager builds a job manager executing runs through run.
func NewManager(cfg *config.Config, run RunFunc, log *zap.Logger) *Manager {
	m := &Manager{
		log:   log,
		cfg:   cfg,
		run:   run,
		jobs:  make(map[string]*Job),
		queue: make(chan string, queueCapacity),
	}
	// The eviction callback fires synchronously inside history.Add, which
	// is only ever called with mu held, so it must not lock.
	m.history, _ = lru.NewWithEvict[string, struct{}](historySize, func(id string, _ struct{}) {
		delete(m.jobs, id)
		for i, other := range m.order {
			if other == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	})
	return m
}

// Start launches the worker goroutine. Jobs created before Start wait in
// the queue.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.worker(ctx)
	m.log.Info("job worker started")
}

// Stop terminates the worker and waits for it to exit. A run in flight is
// interrupted through its context.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.log.Info("job worker stopped")
}

// Create validates the request, registers a pending job and enqueues it.
func (m *Manager) Create(req DesignRequest) (Job, error) {
	if _, err := m.constraints(req, ""); err != nil {
		return Job{}, err
	}

	job := &Job{
		ID:        uuid.NewString()[:8],
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Progress:  "Queued",
		Request:   req,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case m.queue <- job.ID:
	default:
		return Job{}, fmt.Errorf("job queue is full (%d waiting)", queueCapacity)
	}
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)

	m.log.Info("job created", zap.String("job_id", job.ID))
	return *job, nil
}

// Get returns a snapshot of the job, if known.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns snapshots of all known jobs in creation order.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		if j, ok := m.jobs[id]; ok {
			out = append(out, *j)
		}
	}
	return out
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.execute(ctx, id)
		}
	}
}

func (m *Manager) execute(ctx context.Context, id string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	job.StartedAt = time.Now().UTC()
	job.Progress = "Starting pipeline..."
	req := job.Request
	m.mu.Unlock()

	m.log.Info("job started", zap.String("job_id", id))

	report, err := m.runJob(ctx, id, req)

	m.mu.Lock()
	job.CompletedAt = time.Now().UTC()
	job.Report = report
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		job.Progress = "Failed: " + err.Error()
	} else {
		job.Status = StatusCompleted
		job.Progress = "Completed successfully"
	}
	m.history.Add(id, struct{}{})
	m.mu.Unlock()

	if err != nil {
		m.log.Error("job failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	m.log.Info("job completed", zap.String("job_id", id))
}

// runJob materializes the request's input files under the job directory and
// executes the pipeline.
func (m *Manager) runJob(ctx context.Context, id string, req DesignRequest) (*pipeline.RunReport, error) {
	dir := filepath.Join(m.cfg.JobsDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("job %s: create dir: %w", id, err)
	}

	target, err := materializePDB(req.TargetPDB, filepath.Join(dir, "target.pdb"))
	if err != nil {
		return nil, fmt.Errorf("job %s: target: %w", id, err)
	}
	constraints, err := m.constraints(req, target)
	if err != nil {
		return nil, err
	}
	if req.FrameworkPDB != "" {
		framework, err := materializePDB(req.FrameworkPDB, filepath.Join(dir, "framework.pdb"))
		if err != nil {
			return nil, fmt.Errorf("job %s: framework: %w", id, err)
		}
		constraints.FrameworkPDB = framework
	}

	spec := pipeline.RunSpec{
		RunID:          id,
		Dir:            dir,
		Constraints:    constraints,
		SeqsPerStruct:  m.intOrDefault(req.SeqsPerStruct, m.cfg.Generation.SeqsPerStruct),
		GenerationOnly: req.RunFullPipeline != nil && !*req.RunFullPipeline,
	}

	return m.run(ctx, spec, func(msg string) { m.setProgress(id, msg) })
}

// constraints builds the stage constraints from the request plus configured
// defaults. target may be empty during Create-time validation, where only
// the request shape is checked.
func (m *Manager) constraints(req DesignRequest, target string) (*stage.DesignConstraints, error) {
	gen := m.cfg.Generation

	loopTokens := req.DesignLoops
	if len(loopTokens) == 0 {
		loopTokens = gen.DefaultLoops
	}
	loops, err := stage.ParseLoopRanges(loopTokens)
	if err != nil {
		return nil, err
	}

	deterministic := gen.Deterministic
	if req.Deterministic != nil {
		deterministic = *req.Deterministic
	}

	c := &stage.DesignConstraints{
		TargetPDB:       target,
		FrameworkPDB:    gen.DefaultFramework,
		HotspotResidues: req.HotspotResidues,
		DesignLoops:     loops,
		NumDesigns:      m.intOrDefault(req.NumDesigns, gen.DefaultNumDesigns),
		DiffusionSteps:  m.intOrDefault(req.DiffusionSteps, gen.DefaultDiffusionSteps),
		Deterministic:   deterministic,
	}

	if target == "" {
		// Create-time validation: the target is materialized later, so
		// stand in a placeholder and require the raw field instead.
		if req.TargetPDB == "" {
			return nil, fmt.Errorf("target_pdb is required")
		}
		c.TargetPDB = "pending"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Manager) intOrDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func (m *Manager) setProgress(id, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Progress = msg
	}
}

// materializePDB resolves a PDB field that may be either a server-side path
// or inline file content: an existing path is used as-is, anything else is
// written to dest.
func materializePDB(value, dest string) (string, error) {
	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		return value, nil
	}
	if err := os.WriteFile(dest, []byte(value), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}
