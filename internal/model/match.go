package model

// MatchType classifies how closely a search result covers the
// requested timestamp.
type MatchType string

const (
	// MatchExact means the target falls inside the matched segment.
	MatchExact MatchType = "exact"
	// MatchApproximate means the target is within drift tolerance of
	// the matched segment.
	MatchApproximate MatchType = "approximate"
	// MatchNearest means the matched segment is the closest available
	// but outside drift tolerance.
	MatchNearest MatchType = "nearest"
)

// SegmentMatch is a search result: a segment plus where the requested
// time lands within (or relative to) it. It is never persisted.
type SegmentMatch struct {
	Filename string    `json:"filename"`
	Sequence int64     `json:"sequence"`
	Start    float64   `json:"start"`
	End      float64   `json:"end"`
	Duration float64   `json:"duration"`
	Offset   float64   `json:"offset"`
	Drift    float64   `json:"drift"`
	Type     MatchType `json:"matchType"`
}
