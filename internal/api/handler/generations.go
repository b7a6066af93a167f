package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/reelgen/internal/api/response"
	"github.com/kiranshivaraju/reelgen/internal/generation"
	"github.com/kiranshivaraju/reelgen/internal/poller"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// maxBodyBytes bounds a generation request body.
const maxBodyBytes = 64 << 10

// Generator is what the generation handlers depend on; generation.Tracker
// satisfies it.
type Generator interface {
	Submit(ctx context.Context, req models.GenerationRequest) (models.GenerationJob, error)
	Get(jobID string) (generation.JobView, bool)
	Cancel(jobID string) error
}

// generationRequest is the local API body. Fields left out take the service
// defaults.
type generationRequest struct {
	Prompt        string `json:"prompt"`
	LengthSeconds int    `json:"length_seconds"`
	FPS           int    `json:"fps"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Seed          *int64 `json:"seed"`
	QualitySteps  int    `json:"num_inference_steps"`
}

// JobStatus is the JSON view of a tracked job.
type JobStatus struct {
	Job            models.GenerationJob `json:"job"`
	State          string               `json:"state"`
	Phase          models.Phase         `json:"phase,omitempty"`
	ServerStatus   string               `json:"server_status,omitempty"`
	Percent        float64              `json:"percent"`
	ElapsedSeconds int64                `json:"elapsed_seconds"`
	ETASeconds     *int64               `json:"eta_seconds,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/generations.
func NewSubmitHandler(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generationRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := gen.Submit(r.Context(), models.GenerationRequest{
			Prompt:        req.Prompt,
			LengthSeconds: req.LengthSeconds,
			FPS:           req.FPS,
			Width:         req.Width,
			Height:        req.Height,
			Seed:          req.Seed,
			QualitySteps:  req.QualitySteps,
		})
		if err != nil {
			response.AppError(w, err)
			return
		}

		response.Accepted(w, job)
	}
}

// NewGetGenerationHandler returns an http.HandlerFunc for
// GET /api/v1/generations/{jobID}.
func NewGetGenerationHandler(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := gen.Get(chi.URLParam(r, "jobID"))
		if !ok {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job is not tracked", nil)
			return
		}
		response.JSON(w, statusOf(view))
	}
}

// NewCancelGenerationHandler returns an http.HandlerFunc for
// DELETE /api/v1/generations/{jobID}. Only local tracking stops.
func NewCancelGenerationHandler(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := gen.Cancel(chi.URLParam(r, "jobID"))
		if errors.Is(err, generation.ErrNotTracked) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job is not tracked", nil)
			return
		}
		if err != nil {
			response.AppError(w, err)
			return
		}
		response.NoContent(w)
	}
}

func statusOf(v generation.JobView) JobStatus {
	st := JobStatus{
		Job:            v.Job,
		State:          v.State.String(),
		Phase:          v.Snapshot.Phase,
		ServerStatus:   v.Snapshot.RawStatus,
		Percent:        v.Estimate.Percent,
		ElapsedSeconds: int64(v.Estimate.Elapsed / time.Second),
	}
	if v.Estimate.ETAKnown {
		eta := int64(v.Estimate.ETA / time.Second)
		st.ETASeconds = &eta
	}
	if v.Err != nil && v.State != poller.StateCanceled {
		st.Error = v.Err.Error()
	}
	return st
}
