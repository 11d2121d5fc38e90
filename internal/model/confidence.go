package model

// ConfidenceFactors are the independent evidence signals fused into a
// single trust score.
type ConfidenceFactors struct {
	OCRConfidence     float64
	ClockPlausibility float64
	TimeDrift         float64
	SegmentContinuity bool
	MatchType         MatchType
}

// FactorScores holds the per-signal sub-scores after normalization.
type FactorScores struct {
	OCR          float64 `json:"ocr"`
	Plausibility float64 `json:"plausibility"`
	Drift        float64 `json:"drift"`
	Continuity   float64 `json:"continuity"`
}

// ConfidenceWeights are the convex weights applied to each sub-score.
type ConfidenceWeights struct {
	OCR          float64 `json:"ocr"`
	Plausibility float64 `json:"plausibility"`
	Drift        float64 `json:"drift"`
	Continuity   float64 `json:"continuity"`
}

// ConfidenceResult is the fused score plus its breakdown, kept for
// observability and threshold decisions.
type ConfidenceResult struct {
	Overall float64           `json:"overall"`
	Factors FactorScores      `json:"factors"`
	Weights ConfidenceWeights `json:"weights"`
}
