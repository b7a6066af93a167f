package models

import "time"

// ProgressEstimate is derived from the latest snapshot and never persisted.
// ETA is meaningful only when ETAKnown is set.
type ProgressEstimate struct {
	Percent  float64
	Elapsed  time.Duration
	ETA      time.Duration
	ETAKnown bool
}
