package model

// ClockReading is the result of normalizing a scoreboard clock string.
// On failure Valid is false, Err carries the reason, and the numeric
// fields are zero.
type ClockReading struct {
	Minutes      int    `json:"minutes"`
	Seconds      int    `json:"seconds"`
	TotalSeconds int    `json:"totalSeconds"`
	Valid        bool   `json:"valid"`
	Err          string `json:"error,omitempty"`
}

// Score is an optional scoreboard score attached to a sync request.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// SyncRequest pairs a clock string with optional OCR evidence.
type SyncRequest struct {
	Clock         string   `json:"clock"`
	Score         *Score   `json:"score,omitempty"`
	OCRConfidence *float64 `json:"ocrConfidence,omitempty"`
}

// SyncMetadata echoes the inputs that produced a sync result.
type SyncMetadata struct {
	ClockInput   string    `json:"clockInput"`
	ClockSeconds int       `json:"clockSeconds"`
	MatchType    MatchType `json:"matchType"`
}

// SyncResult is the outcome of resolving a clock reading to a stream
// timestamp. Unresolvable requests are reported as Success=false with
// Error set, not as failures of the call itself.
type SyncResult struct {
	Success         bool          `json:"success"`
	Timestamp       float64       `json:"timestamp"`
	SegmentFilename string        `json:"segmentFilename,omitempty"`
	SegmentSequence int64         `json:"segmentSequence"`
	Confidence      float64       `json:"confidence"`
	Drift           float64       `json:"drift"`
	Metadata        *SyncMetadata `json:"metadata,omitempty"`
	Error           string        `json:"error,omitempty"`
}
