// Package validate normalizes generation requests before they are submitted.
//
// Only the prompt can make a request invalid. Numeric settings are defaulted
// when zero and otherwise snapped to the nearest value the service supports;
// the clip length is clamped to [MinLengthSeconds, MaxLengthSeconds].
package validate

import (
	"strings"

	"github.com/kiranshivaraju/reelgen/internal/apperr"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

const (
	MinLengthSeconds = 5
	MaxLengthSeconds = 60

	DefaultLengthSeconds = 20
	DefaultFPS           = 8
	DefaultWidth         = 512
	DefaultHeight        = 512
	DefaultQualitySteps  = 20
)

// Resolution is a supported output frame size. Both sides are multiples of 8.
type Resolution struct {
	Width  int
	Height int
}

var (
	FPSOptions         = []int{4, 8, 12, 16, 24}
	QualityStepOptions = []int{10, 20, 30, 50}
	ResolutionOptions  = []Resolution{
		{256, 256},
		{512, 512},
		{512, 768},
		{768, 512},
		{768, 768},
	}
)

// Request returns the normalized form of req, or a KindValidation error when
// the prompt is empty after trimming.
func Request(req models.GenerationRequest) (models.GenerationRequest, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return models.GenerationRequest{}, apperr.Validation("prompt is required")
	}

	out := models.GenerationRequest{
		Prompt:        prompt,
		LengthSeconds: clampLength(req.LengthSeconds),
		FPS:           nearest(orDefault(req.FPS, DefaultFPS), FPSOptions),
		QualitySteps:  nearest(orDefault(req.QualitySteps, DefaultQualitySteps), QualityStepOptions),
	}

	res := nearestResolution(orDefault(req.Width, DefaultWidth), orDefault(req.Height, DefaultHeight))
	out.Width, out.Height = res.Width, res.Height

	if req.Seed != nil && *req.Seed >= 0 {
		seed := *req.Seed
		out.Seed = &seed
	}

	return out, nil
}

func clampLength(n int) int {
	if n == 0 {
		return DefaultLengthSeconds
	}
	if n < MinLengthSeconds {
		return MinLengthSeconds
	}
	if n > MaxLengthSeconds {
		return MaxLengthSeconds
	}
	return n
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// nearest picks the option closest to v; ties go to the smaller option.
// options must be sorted ascending.
func nearest(v int, options []int) int {
	best := options[0]
	for _, o := range options[1:] {
		if abs(o-v) < abs(best-v) {
			best = o
		}
	}
	return best
}

func nearestResolution(w, h int) Resolution {
	best := ResolutionOptions[0]
	bestDist := abs(best.Width-w) + abs(best.Height-h)
	for _, r := range ResolutionOptions[1:] {
		if d := abs(r.Width-w) + abs(r.Height-h); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
