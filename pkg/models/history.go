package models

import "time"

// HistoryItem records one completed generation.
type HistoryItem struct {
	ID            string          `json:"id"`
	Prompt        string          `json:"prompt"`
	MediaLocation string          `json:"media_location"`
	CreatedAt     time.Time       `json:"created_at"`
	Settings      HistorySettings `json:"settings"`
}

type HistorySettings struct {
	LengthSeconds int `json:"length_seconds"`
	FPS           int `json:"fps"`
	Width         int `json:"width"`
	Height        int `json:"height"`
}

// SettingsOf captures the history-relevant subset of a request.
func SettingsOf(r GenerationRequest) HistorySettings {
	return HistorySettings{
		LengthSeconds: r.LengthSeconds,
		FPS:           r.FPS,
		Width:         r.Width,
		Height:        r.Height,
	}
}
