// Package progress turns raw status snapshots into a monotone percentage and
// a time-remaining estimate.
package progress

import (
	"math"
	"time"

	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// Percent returns the percentage to display given the previous value and the
// one the server reported, if any. The result never drops below prev.
func Percent(prev float64, reported *float64) float64 {
	if reported == nil || math.IsNaN(*reported) {
		return prev
	}
	return math.Max(prev, clamp(*reported, 0, 100))
}

// ETA estimates the time left. With frame telemetry it extrapolates the
// average time per frame; otherwise it falls back to the server's rough
// estimate minus elapsed time. ok is false when neither is available. The
// result is never negative and saturates at the largest Duration.
func ETA(elapsed time.Duration, frames, total *int, fallback time.Duration, hasFallback bool) (eta time.Duration, ok bool) {
	if frames != nil && total != nil && *frames > 0 {
		remaining := float64(*total) - float64(*frames)
		if remaining <= 0 || elapsed <= 0 {
			return 0, true
		}
		est := float64(elapsed) / float64(*frames) * remaining
		if est >= math.MaxInt64 {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(est), true
	}
	if !hasFallback {
		return 0, false
	}
	if left := fallback - elapsed; left > 0 {
		return left, true
	}
	return 0, true
}

// Estimator tracks one job's progress across snapshots. It is not safe for
// concurrent use; the owning poll session serializes access.
type Estimator struct {
	start       time.Time
	totalFrames int
	rough       time.Duration
	hasRough    bool
	sawFrames   bool
	last        models.ProgressEstimate
}

// NewEstimator starts timing job from start.
func NewEstimator(job models.GenerationJob, start time.Time) *Estimator {
	rough, ok := job.RoughEstimate()
	return &Estimator{
		start:       start,
		totalFrames: job.Request.TotalFrames(),
		rough:       rough,
		hasRough:    ok,
	}
}

// Update folds snap into the estimate. A server-reported total wins over the
// one derived from the request settings.
func (e *Estimator) Update(snap models.StatusSnapshot, now time.Time) models.ProgressEstimate {
	elapsed := now.Sub(e.start)
	if elapsed < 0 {
		elapsed = 0
	}

	total := snap.Progress.TotalFrames
	if total == nil && e.totalFrames > 0 {
		derived := e.totalFrames
		total = &derived
	}

	frames := snap.Progress.FramesGenerated
	var eta time.Duration
	var ok bool
	switch {
	case frames != nil && *frames > 0:
		e.sawFrames = true
		eta, ok = ETA(elapsed, frames, total, e.rough, e.hasRough)
	case e.sawFrames:
		// Frame telemetry dropped out; hold the last frame-based ETA.
		eta, ok = e.last.ETA, e.last.ETAKnown
	default:
		eta, ok = ETA(elapsed, frames, total, e.rough, e.hasRough)
	}
	e.last = models.ProgressEstimate{
		Percent:  Percent(e.last.Percent, snap.Progress.Percent),
		Elapsed:  elapsed,
		ETA:      eta,
		ETAKnown: ok,
	}
	return e.last
}

// Complete marks the job finished: 100 percent, nothing remaining.
func (e *Estimator) Complete(now time.Time) models.ProgressEstimate {
	e.last = models.ProgressEstimate{
		Percent:  100,
		Elapsed:  now.Sub(e.start),
		ETA:      0,
		ETAKnown: true,
	}
	return e.last
}

// Last returns the most recent estimate without recomputing it.
func (e *Estimator) Last() models.ProgressEstimate {
	return e.last
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
