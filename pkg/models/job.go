package models

import "time"

// GenerationJob is the server's acknowledgement of one submitted request.
// The client submits via POST /generate and then polls the status URL until
// the job is ready, failed, or unknown to the server.
type GenerationJob struct {
	ID               string            `json:"job_id"`
	StatusURL        string            `json:"status_url"`
	DownloadURL      string            `json:"download_url"`
	EstimatedMinutes *int              `json:"estimated_time_minutes,omitempty"`
	Request          GenerationRequest `json:"request"`
	SubmittedAt      time.Time         `json:"submitted_at"`
}

// RoughEstimate converts the server's rough minute estimate to a duration.
func (j GenerationJob) RoughEstimate() (time.Duration, bool) {
	if j.EstimatedMinutes == nil || *j.EstimatedMinutes < 0 {
		return 0, false
	}
	return time.Duration(*j.EstimatedMinutes) * time.Minute, true
}
