// Package model defines the core data types shared across the index,
// watcher, and sync components.
package model

// Segment is one fixed-duration unit of the media stream, identified by
// the sequence number assigned by the external packager.
type Segment struct {
	ID        int64   `json:"id"`
	Sequence  int64   `json:"sequence"`
	Filename  string  `json:"filename"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"created_at"`
}

// Contains reports whether ts falls inside the segment's time range,
// boundaries included.
func (s Segment) Contains(ts float64) bool {
	return ts >= s.Start && ts <= s.End
}

// IndexStats summarizes the state of the segment index.
type IndexStats struct {
	TotalSegments int64    `json:"totalSegments"`
	OldestSegment *Segment `json:"oldestSegment"`
	NewestSegment *Segment `json:"newestSegment"`
	TotalDuration float64  `json:"totalDuration"`
}
