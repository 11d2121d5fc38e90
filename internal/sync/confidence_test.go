package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

func TestCalculator_Calculate(t *testing.T) {
	c := NewCalculator(zap.NewNop())

	t.Run("perfect signals give full confidence", func(t *testing.T) {
		result := c.Calculate(model.ConfidenceFactors{
			OCRConfidence:     1.0,
			ClockPlausibility: 1.0,
			TimeDrift:         0,
			SegmentContinuity: true,
			MatchType:         model.MatchExact,
		})

		assert.InDelta(t, 1.0, result.Overall, 1e-9)
		assert.Equal(t, model.ConfidenceWeights{
			OCR: 0.4, Plausibility: 0.3, Drift: 0.2, Continuity: 0.1,
		}, result.Weights)
	})

	t.Run("exact match scores full drift despite drift value", func(t *testing.T) {
		result := c.Calculate(model.ConfidenceFactors{
			OCRConfidence:     1.0,
			ClockPlausibility: 1.0,
			TimeDrift:         7.5,
			SegmentContinuity: true,
			MatchType:         model.MatchExact,
		})
		assert.Equal(t, 1.0, result.Factors.Drift)
	})

	t.Run("discontinuity halves the continuity factor", func(t *testing.T) {
		result := c.Calculate(model.ConfidenceFactors{
			OCRConfidence:     1.0,
			ClockPlausibility: 1.0,
			TimeDrift:         0,
			SegmentContinuity: false,
			MatchType:         model.MatchExact,
		})
		assert.Equal(t, 0.5, result.Factors.Continuity)
		assert.InDelta(t, 0.95, result.Overall, 1e-9)
	})

	t.Run("degenerate inputs stay clamped", func(t *testing.T) {
		result := c.Calculate(model.ConfidenceFactors{
			OCRConfidence:     17,
			ClockPlausibility: 42,
			TimeDrift:         -3,
			SegmentContinuity: true,
			MatchType:         model.MatchNearest,
		})
		assert.LessOrEqual(t, result.Overall, 1.0)
		assert.GreaterOrEqual(t, result.Overall, 0.0)
	})
}

func TestDriftScore(t *testing.T) {
	tests := []struct {
		name      string
		drift     float64
		matchType model.MatchType
		want      float64
	}{
		{"exact overrides drift", 100, model.MatchExact, 1.0},
		{"zero drift", 0, model.MatchApproximate, 1.0},
		{"within one second", 0.5, model.MatchApproximate, 0.9},
		{"one second", 1, model.MatchApproximate, 0.9},
		{"two seconds", 2, model.MatchApproximate, 0.7},
		{"five seconds", 5, model.MatchApproximate, 0.4},
		{"ten seconds", 10, model.MatchNearest, 0.2},
		{"beyond ten seconds", 30, model.MatchNearest, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, driftScore(tt.drift, tt.matchType))
		})
	}
}

func TestCalculator_IsAcceptable(t *testing.T) {
	c := NewCalculator(zap.NewNop())

	assert.True(t, c.IsAcceptable(0.5))
	assert.True(t, c.IsAcceptable(1.0))
	assert.False(t, c.IsAcceptable(0.49))
	assert.False(t, c.IsAcceptable(0))
}

func TestCalculator_Level(t *testing.T) {
	c := NewCalculator(zap.NewNop())

	tests := []struct {
		confidence float64
		want       string
	}{
		{1.0, "excellent"},
		{0.9, "excellent"},
		{0.89, "good"},
		{0.7, "good"},
		{0.5, "acceptable"},
		{0.3, "low"},
		{0.29, "very low"},
		{0, "very low"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Level(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestCalculator_BoundedForAllInputs(t *testing.T) {
	c := NewCalculator(zap.NewNop())

	for _, ocr := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, plaus := range []float64{0.3, 0.5, 0.8, 1} {
			for _, drift := range []float64{0, 0.5, 1.5, 4, 8, 20} {
				for _, cont := range []bool{true, false} {
					result := c.Calculate(model.ConfidenceFactors{
						OCRConfidence:     ocr,
						ClockPlausibility: plaus,
						TimeDrift:         drift,
						SegmentContinuity: cont,
						MatchType:         model.MatchApproximate,
					})
					assert.GreaterOrEqual(t, result.Overall, 0.0)
					assert.LessOrEqual(t, result.Overall, 1.0)
				}
			}
		}
	}
}
