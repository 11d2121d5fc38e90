package sync

import (
	"math"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

// Weights applied to each evidence signal. They sum to 1, so the fused
// score is a convex combination of the sub-scores.
var confidenceWeights = model.ConfidenceWeights{
	OCR:          0.4,
	Plausibility: 0.3,
	Drift:        0.2,
	Continuity:   0.1,
}

// Calculator fuses the independent sync evidence signals into one
// bounded trust score. It is total: every input, however degenerate,
// produces a well-formed result in [0,1].
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator creates a confidence calculator.
func NewCalculator(logger *zap.Logger) *Calculator {
	return &Calculator{logger: logger}
}

// Calculate fuses the factors into an overall score with a per-signal
// breakdown.
func (c *Calculator) Calculate(factors model.ConfidenceFactors) model.ConfidenceResult {
	scores := model.FactorScores{
		OCR:          factors.OCRConfidence,
		Plausibility: factors.ClockPlausibility,
		Drift:        driftScore(factors.TimeDrift, factors.MatchType),
		Continuity:   0.5,
	}
	if factors.SegmentContinuity {
		scores.Continuity = 1.0
	}

	overall := scores.OCR*confidenceWeights.OCR +
		scores.Plausibility*confidenceWeights.Plausibility +
		scores.Drift*confidenceWeights.Drift +
		scores.Continuity*confidenceWeights.Continuity
	overall = math.Min(1.0, math.Max(0.0, overall))

	c.logger.Debug("Confidence calculated",
		zap.Float64("overall", overall),
		zap.Float64("ocr", scores.OCR),
		zap.Float64("plausibility", scores.Plausibility),
		zap.Float64("drift", scores.Drift),
		zap.Float64("continuity", scores.Continuity))

	return model.ConfidenceResult{
		Overall: overall,
		Factors: scores,
		Weights: confidenceWeights,
	}
}

// driftScore maps raw drift seconds to a sub-score. Exact matches
// score full marks regardless of the drift value.
func driftScore(drift float64, matchType model.MatchType) float64 {
	if matchType == model.MatchExact {
		return 1.0
	}
	switch {
	case drift == 0:
		return 1.0
	case drift <= 1:
		return 0.9
	case drift <= 2:
		return 0.7
	case drift <= 5:
		return 0.4
	case drift <= 10:
		return 0.2
	default:
		return 0.1
	}
}

// IsAcceptable reports whether an overall score clears the minimum
// threshold for acting on a sync.
func (c *Calculator) IsAcceptable(confidence float64) bool {
	return confidence >= 0.5
}

// Level buckets an overall score into a human-readable category.
func (c *Calculator) Level(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "excellent"
	case confidence >= 0.7:
		return "good"
	case confidence >= 0.5:
		return "acceptable"
	case confidence >= 0.3:
		return "low"
	default:
		return "very low"
	}
}
