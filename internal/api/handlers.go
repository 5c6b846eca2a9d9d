package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"abforge/internal/job"
	"abforge/internal/precheck"
)

// Version of the API surface.
const Version = "1.0.0"

// maxUploadBytes bounds a multipart design upload. Structure files are
// small; anything beyond this is a mistake.
const maxUploadBytes = 32 << 20

// Handler serves the design API over a job manager.
type Handler struct {
	log     *zap.Logger
	jobs    *job.Manager
	checker *precheck.Checker
}

// NewHandler builds the API handler. checker may be nil, in which case
// health reports only liveness.
func NewHandler(log *zap.Logger, jobs *job.Manager, checker *precheck.Checker) *Handler {
	return &Handler{log: log, jobs: jobs, checker: checker}
}

// Health reports liveness plus (when a checker is wired) whether the model
// weights and example inputs are in place.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "healthy",
		"version": Version,
	}
	if h.checker != nil {
		report := h.checker.Run(r.Context())
		resp["artifacts_ok"] = report.AllOK()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateDesign accepts a JSON design request and queues a job.
func (h *Handler) CreateDesign(w http.ResponseWriter, r *http.Request) {
	var req job.DesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	h.createJob(w, req)
}

// CreateDesignUpload accepts a multipart design request with uploaded
// structure files.
func (h *Handler) CreateDesignUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid multipart form: "+err.Error())
		return
	}

	target, err := readUpload(r, "target_pdb")
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "target_pdb file is required")
		return
	}

	req := job.DesignRequest{
		TargetPDB:       target,
		HotspotResidues: splitCSV(r.FormValue("hotspot_residues")),
		DesignLoops:     splitCSV(r.FormValue("design_loops")),
	}
	if framework, err := readUpload(r, "framework_pdb"); err == nil {
		req.FrameworkPDB = framework
	}
	if v := r.FormValue("num_designs"); v != "" {
		req.NumDesigns, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("diffusion_steps"); v != "" {
		req.DiffusionSteps, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("seqs_per_struct"); v != "" {
		req.SeqsPerStruct, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("run_full_pipeline"); v != "" {
		full, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid run_full_pipeline value")
			return
		}
		req.RunFullPipeline = &full
	}

	h.createJob(w, req)
}

func (h *Handler) createJob(w http.ResponseWriter, req job.DesignRequest) {
	created, err := h.jobs.Create(req)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse{
		JobID:     created.ID,
		Status:    created.Status,
		Message:   "Job created and queued for processing",
		CreatedAt: created.CreatedAt,
	})
}

// ListJobs returns the status of every known job.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := h.jobs.List()
	out := make([]jobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toStatusResponse(j))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetJob returns the status of one job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(j))
}

// GetJobResults returns the output artifacts of a finished job.
func (h *Handler) GetJobResults(w http.ResponseWriter, r *http.Request) {
	j, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !j.Done() {
		writeError(w, h.log, http.StatusConflict, "job_not_finished",
			"job "+j.ID+" is still "+string(j.Status))
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(j))
}

// DownloadFile streams one output artifact of a completed job. Only the
// basenames recorded in the job's report are served, which makes path
// traversal through the filename segment impossible.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	j, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if j.Status != job.StatusCompleted {
		writeError(w, h.log, http.StatusConflict, "job_not_completed",
			"job "+j.ID+" is not completed")
		return
	}

	filename := chi.URLParam(r, "filename")
	for _, path := range j.OutputFiles() {
		if filepath.Base(path) == filename {
			w.Header().Set("Content-Type", "chemical/x-pdb")
			w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
			http.ServeFile(w, r, path)
			return
		}
	}
	writeError(w, h.log, http.StatusNotFound, "file_not_found",
		"file "+filename+" is not an output of job "+j.ID)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (job.Job, bool) {
	id := chi.URLParam(r, "jobID")
	j, ok := h.jobs.Get(id)
	if !ok {
		writeError(w, h.log, http.StatusNotFound, "job_not_found", "job "+id+" not found")
	}
	return j, ok
}

func readUpload(r *http.Request, field string) (string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
