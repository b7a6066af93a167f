package genapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/reelgen/internal/apperr"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// --- service wire types ---

type submitRequest struct {
	Prompt            string `json:"prompt"`
	LengthSeconds     int    `json:"length_seconds"`
	FPS               int    `json:"fps"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	Seed              *int64 `json:"seed,omitempty"`
	NumInferenceSteps int    `json:"num_inference_steps"`
}

type submitResponse struct {
	JobID            string `json:"job_id"`
	StatusURL        string `json:"status_url"`
	DownloadURL      string `json:"download_url"`
	EstimatedMinutes *int   `json:"estimated_time_minutes"`
}

type statusResponse struct {
	JobID    string          `json:"job_id"`
	Exists   *bool           `json:"exists"`
	Ready    bool            `json:"ready"`
	Error    bool            `json:"error"`
	Status   string          `json:"status"`
	Progress json.RawMessage `json:"progress"`
	Files    []string        `json:"files"`
}

// decodeStatus validates a status body into a snapshot. The envelope must be
// a JSON object with an exists flag; the progress telemetry is best effort
// and anything missing or unreadable in it is left nil.
func decodeStatus(body []byte) (models.StatusSnapshot, error) {
	var raw statusResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.StatusSnapshot{}, apperr.Decode(fmt.Errorf("decoding status response: %w", err))
	}
	if raw.Exists == nil {
		return models.StatusSnapshot{}, apperr.Decode(errors.New("status response has no exists flag"))
	}

	status := strings.TrimSpace(raw.Status)
	return models.StatusSnapshot{
		JobID:     raw.JobID,
		Exists:    *raw.Exists,
		Ready:     raw.Ready,
		Error:     raw.Error,
		Phase:     models.ParsePhase(status),
		RawStatus: status,
		Progress:  decodeProgress(raw.Progress),
		Files:     raw.Files,
	}, nil
}

func decodeProgress(raw json.RawMessage) models.FrameProgress {
	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &fields) != nil {
		return models.FrameProgress{}
	}

	var p models.FrameProgress
	if n, ok := parseFrameCount(fields["frames_generated"]); ok && n >= 0 {
		v := int(n)
		p.FramesGenerated = &v
	}
	if n, ok := parseFrameCount(fields["total_frames"]); ok && n > 0 {
		v := int(n)
		p.TotalFrames = &v
	}
	if n, ok := parseNumber(fields["progress_percent"]); ok && n >= 0 {
		v := math.Min(n, 100)
		p.Percent = &v
	}
	return p
}

// parseFrameCount reads a whole frame count. Counts beyond MaxInt32 are
// treated as unknown.
func parseFrameCount(raw json.RawMessage) (float64, bool) {
	n, ok := parseNumber(raw)
	if !ok || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, false
	}
	return n, true
}

// parseNumber accepts a JSON number or a string holding one. The service
// sends its telemetry as text.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, finite(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
