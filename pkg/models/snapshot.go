package models

// Phase is the server-reported stage of a generation job.
type Phase string

const (
	PhaseStarting              Phase = "starting"
	PhaseCheckingPrerequisites Phase = "checking_prerequisites"
	PhaseInitializing          Phase = "initializing"
	PhaseGeneratingFrames      Phase = "generating_frames"
	PhaseAssemblingOutput      Phase = "assembling_output"
	PhaseCompleted             Phase = "completed"
	PhaseError                 Phase = "error"
	// PhaseProcessing stands in for any status string the client does not recognize.
	PhaseProcessing Phase = "processing"
)

var phaseAliases = map[string]Phase{
	"starting":               PhaseStarting,
	"checking_prerequisites": PhaseCheckingPrerequisites,
	"checking_ffmpeg":        PhaseCheckingPrerequisites,
	"initializing":           PhaseInitializing,
	"generating_frames":      PhaseGeneratingFrames,
	"assembling_output":      PhaseAssemblingOutput,
	"assembling_video":       PhaseAssemblingOutput,
	"completed":              PhaseCompleted,
	"error":                  PhaseError,
}

// ParsePhase maps a raw status string onto a known phase. Unknown values are
// reported as PhaseProcessing, never as an error.
func ParsePhase(raw string) Phase {
	if p, ok := phaseAliases[raw]; ok {
		return p
	}
	return PhaseProcessing
}

// FrameProgress is the partial frame telemetry attached to a snapshot.
// Nil fields were absent or unparseable.
type FrameProgress struct {
	FramesGenerated *int     `json:"frames_generated,omitempty"`
	TotalFrames     *int     `json:"total_frames,omitempty"`
	Percent         *float64 `json:"progress_percent,omitempty"`
}

// StatusSnapshot is one poll response.
type StatusSnapshot struct {
	JobID     string        `json:"job_id"`
	Exists    bool          `json:"exists"`
	Ready     bool          `json:"ready"`
	Error     bool          `json:"error"`
	Phase     Phase         `json:"phase"`
	RawStatus string        `json:"status"`
	Progress  FrameProgress `json:"progress"`
	Files     []string      `json:"files"`
}
