package model

import "time"

// ScanPayload is one decoded value produced by a capture device. Never persisted.
type ScanPayload struct {
	Text       string
	CapturedAt time.Time
}

// CandidateScan is a payload that survived coalescing and may be resolved.
type CandidateScan struct {
	Payload    string    `json:"payload"`
	CapturedAt time.Time `json:"captured_at"`
}
