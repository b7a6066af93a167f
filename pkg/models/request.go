package models

// GenerationRequest describes one text-to-video generation.
type GenerationRequest struct {
	Prompt        string `json:"prompt"`
	LengthSeconds int    `json:"length_seconds"`
	FPS           int    `json:"fps"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Seed          *int64 `json:"seed,omitempty"`
	QualitySteps  int    `json:"num_inference_steps"`
}

// TotalFrames is the number of frames the service renders for r.
func (r GenerationRequest) TotalFrames() int {
	return r.LengthSeconds * r.FPS
}
