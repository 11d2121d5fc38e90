package model

// StreamInfo reports the observable state of the HLS output directory.
type StreamInfo struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	Segments       int    `json:"segments,omitempty"`
	TargetDuration *int   `json:"targetDuration,omitempty"`
	MediaSequence  *int   `json:"mediaSequence,omitempty"`
	PlaylistPath   string `json:"playlistPath,omitempty"`
}
