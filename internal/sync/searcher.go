package sync

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

// DefaultDriftTolerance is the drift, in seconds, up to which a
// non-exact match is still considered approximate.
const DefaultDriftTolerance = 5.0

// SegmentSource is the read-side view of the segment index the
// searcher needs. *index.Reader satisfies it.
type SegmentSource interface {
	All(ctx context.Context) ([]model.Segment, error)
	Range(ctx context.Context, start, end float64) ([]model.Segment, error)
}

// Searcher resolves a target time to the best matching segment via
// binary search over the index's ascending sequence order.
type Searcher struct {
	source         SegmentSource
	driftTolerance float64
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewSearcher creates a timestamp searcher over the given source. A
// non-positive driftTolerance falls back to the default.
func NewSearcher(source SegmentSource, driftTolerance float64, m *metrics.Metrics, logger *zap.Logger) *Searcher {
	if driftTolerance <= 0 {
		driftTolerance = DefaultDriftTolerance
	}
	return &Searcher{source: source, driftTolerance: driftTolerance, metrics: m, logger: logger}
}

// Search finds the segment best covering target (seconds into the
// stream). An exact containment wins immediately; otherwise the probed
// segment with the smallest drift is returned, classified approximate
// or nearest against the drift tolerance. An empty index, or any
// lookup failure, yields nil rather than an error: the caller treats
// both as "nothing to sync to yet".
func (s *Searcher) Search(ctx context.Context, target float64) *model.SegmentMatch {
	start := time.Now()
	defer func() { s.metrics.SearchObserved(time.Since(start)) }()

	segments, err := s.source.All(ctx)
	if err != nil {
		s.logger.Error("Segment lookup failed", zap.Error(err))
		return nil
	}
	if len(segments) == 0 {
		s.logger.Warn("No segments available for search", zap.Float64("target", target))
		return nil
	}

	var best *model.SegmentMatch
	minDrift := math.Inf(1)

	left, right := 0, len(segments)-1
	for left <= right {
		mid := (left + right) / 2
		seg := segments[mid]

		if seg.Contains(target) {
			best = matchAt(seg, target-seg.Start, 0, model.MatchExact)
			break
		}

		// Off-segment probe: remember it if it is strictly nearer than
		// anything seen so far, clamping the offset to the nearer edge.
		// On an exact drift tie the earlier-probed candidate is kept,
		// so which gap neighbor wins is decided by bisection order,
		// not by sequence. Deterministic either way.
		drift := math.Min(math.Abs(target-seg.Start), math.Abs(target-seg.End))
		if drift < minDrift {
			minDrift = drift
			offset := seg.Duration
			if target <= seg.Start {
				offset = 0
			}
			matchType := model.MatchNearest
			if drift <= s.driftTolerance {
				matchType = model.MatchApproximate
			}
			best = matchAt(seg, offset, drift, matchType)
		}

		if target < seg.Start {
			right = mid - 1
		} else {
			left = mid + 1
		}
	}

	if best != nil {
		s.logger.Debug("Timestamp search finished",
			zap.Float64("target", target),
			zap.Int64("sequence", best.Sequence),
			zap.Float64("drift", best.Drift),
			zap.String("match_type", string(best.Type)))
	}
	return best
}

// SearchWindow returns every segment intersecting the window of the
// given size centered on center, each tagged approximate with its own
// offset and drift. It is the bulk counterpart to Search, used for
// uncertainty windows and live-edge queries.
func (s *Searcher) SearchWindow(ctx context.Context, center, windowSize float64) []model.SegmentMatch {
	start := center - windowSize/2
	end := center + windowSize/2

	segments, err := s.source.Range(ctx, start, end)
	if err != nil {
		s.logger.Error("Segment range lookup failed", zap.Error(err))
		return nil
	}

	matches := make([]model.SegmentMatch, 0, len(segments))
	for _, seg := range segments {
		offset := math.Max(0, math.Min(seg.Duration, center-seg.Start))
		drift := 0.0
		if !seg.Contains(center) {
			drift = math.Min(math.Abs(center-seg.Start), math.Abs(center-seg.End))
		}
		matches = append(matches, *matchAt(seg, offset, drift, model.MatchApproximate))
	}
	return matches
}

func matchAt(seg model.Segment, offset, drift float64, t model.MatchType) *model.SegmentMatch {
	return &model.SegmentMatch{
		Filename: seg.Filename,
		Sequence: seg.Sequence,
		Start:    seg.Start,
		End:      seg.End,
		Duration: seg.Duration,
		Offset:   offset,
		Drift:    drift,
		Type:     t,
	}
}
