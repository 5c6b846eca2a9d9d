// Package job provides the in-memory asynchronous job layer over the
// pipeline: the API accepts design requests, the single worker executes
// them strictly one at a time, and completed jobs stay queryable in a
// bounded history.
package job

import (
	"time"

	"abforge/internal/pipeline"
)

// Status of a job in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DesignRequest is the user-facing input of one design job. The PDB fields
// accept either inline file content or a path that exists on the server.
// Zero-valued numeric fields fall back to configured defaults.
type DesignRequest struct {
	TargetPDB       string   `json:"target_pdb"`
	FrameworkPDB    string   `json:"framework_pdb,omitempty"`
	HotspotResidues []string `json:"hotspot_residues"`
	DesignLoops     []string `json:"design_loops,omitempty"`
	NumDesigns      int      `json:"num_designs,omitempty"`
	DiffusionSteps  int      `json:"diffusion_steps,omitempty"`
	SeqsPerStruct   int      `json:"seqs_per_struct,omitempty"`
	Deterministic   *bool    `json:"deterministic,omitempty"`
	RunFullPipeline *bool    `json:"run_full_pipeline,omitempty"`
}

// Job is a queued, running or finished design job. Values handed out by the
// Manager are snapshots; mutation happens only inside the Manager.
type Job struct {
	ID          string
	Status      Status
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Progress    string
	Error       string
	Request     DesignRequest
	Report      *pipeline.RunReport
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// OutputFiles returns every artifact path the finished job produced, in
// stage order.
func (j *Job) OutputFiles() []string {
	if j.Report == nil {
		return nil
	}
	var files []string
	files = append(files, j.Report.Generated.Files...)
	files = append(files, j.Report.Designed.Files...)
	files = append(files, j.Report.Validated.Files...)
	return files
}
