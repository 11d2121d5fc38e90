// Package sync resolves scoreboard clock readings to positions in the
// indexed media stream and scores how much each resolution can be
// trusted.
package sync

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

// clockPattern accepts M:SS and MM:SS, the shapes a scoreboard clock
// can take.
var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Normalizer parses scoreboard clock strings into seconds and judges
// how plausible a parsed value is.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a clock normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize parses a clock string into minutes, seconds, and total
// seconds. Malformed or implausible input yields Valid=false with the
// reason in Err and zeroed numeric fields.
func (n *Normalizer) Normalize(clock string) model.ClockReading {
	clock = strings.TrimSpace(clock)

	m := clockPattern.FindStringSubmatch(clock)
	if m == nil {
		return model.ClockReading{Err: "invalid clock format, expected MM:SS or M:SS"}
	}

	minutes, _ := strconv.Atoi(m[1])
	seconds, _ := strconv.Atoi(m[2])

	if seconds > 59 {
		return model.ClockReading{Err: "seconds must be between 0 and 59"}
	}
	// Covers regulation, overtime, and injury time across common
	// sports; anything longer is almost certainly a misread.
	if minutes > 120 {
		return model.ClockReading{Err: "minutes exceeds reasonable range (max 120)"}
	}

	total := minutes*60 + seconds
	n.logger.Debug("Clock normalized",
		zap.String("clock", clock),
		zap.Int("total_seconds", total))

	return model.ClockReading{
		Minutes:      minutes,
		Seconds:      seconds,
		TotalSeconds: total,
		Valid:        true,
	}
}

// PlausibilityScore rates how likely a normalized clock value is to be
// a genuine game clock. It is a monotonically non-increasing step
// function of magnitude: values up to 60 minutes are fully plausible,
// soccer extra time less so, and anything beyond two hours is suspect.
func (n *Normalizer) PlausibilityScore(totalSeconds int) float64 {
	switch {
	case totalSeconds >= 0 && totalSeconds <= 3600:
		return 1.0
	case totalSeconds <= 5400:
		return 0.8
	case totalSeconds <= 7200:
		return 0.5
	default:
		return 0.3
	}
}
