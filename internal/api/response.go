package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"abforge/internal/job"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response and logs 5xx errors.
func writeError(w http.ResponseWriter, log *zap.Logger, status int, code, message string) {
	if status >= 500 && log != nil {
		log.Error(message, zap.String("code", code))
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

type jobResponse struct {
	JobID     string     `json:"job_id"`
	Status    job.Status `json:"status"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

type jobStatusResponse struct {
	JobID       string     `json:"job_id"`
	Status      job.Status `json:"status"`
	Progress    string     `json:"progress,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type jobResultResponse struct {
	JobID            string     `json:"job_id"`
	Status           job.Status `json:"status"`
	OutputFiles      []string   `json:"output_files"`
	GeneratedOutputs []string   `json:"generated_outputs"`
	DesignedOutputs  []string   `json:"designed_outputs"`
	ValidatedOutputs []string   `json:"validated_outputs"`
	FailedStage      string     `json:"failed_stage,omitempty"`
	Error            string     `json:"error,omitempty"`
}

func toStatusResponse(j job.Job) jobStatusResponse {
	resp := jobStatusResponse{
		JobID:     j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		CreatedAt: j.CreatedAt,
		Error:     j.Error,
	}
	if !j.StartedAt.IsZero() {
		resp.StartedAt = &j.StartedAt
	}
	if !j.CompletedAt.IsZero() {
		resp.CompletedAt = &j.CompletedAt
	}
	return resp
}

func toResultResponse(j job.Job) jobResultResponse {
	resp := jobResultResponse{
		JobID:       j.ID,
		Status:      j.Status,
		OutputFiles: j.OutputFiles(),
		Error:       j.Error,
	}
	if j.Report != nil {
		resp.GeneratedOutputs = j.Report.Generated.Files
		resp.DesignedOutputs = j.Report.Designed.Files
		resp.ValidatedOutputs = j.Report.Validated.Files
		resp.FailedStage = j.Report.FailedStage
	}
	return resp
}
