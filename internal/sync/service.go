package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

// liveEdgeCenter is far beyond any realistic stream position; paired
// with a window twice its size it makes SearchWindow enumerate the
// whole index so the tail can be read off the end.
const liveEdgeCenter = 1e9

// ValidationError reports a malformed sync request. It is the only
// hard failure the service surfaces; everything else is a soft
// `success:false` result.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Service orchestrates a sync request: normalize the clock, search the
// index, fuse the evidence into a confidence score. It holds no state
// between requests.
type Service struct {
	normalizer *Normalizer
	searcher   *Searcher
	calculator *Calculator
	defaultOCR float64
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewService wires the sync service from its parts. defaultOCR is the
// OCR confidence assumed when a request does not supply one.
func NewService(
	normalizer *Normalizer,
	searcher *Searcher,
	calculator *Calculator,
	defaultOCR float64,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		normalizer: normalizer,
		searcher:   searcher,
		calculator: calculator,
		defaultOCR: defaultOCR,
		metrics:    m,
		logger:     logger,
	}
}

// Sync resolves a clock reading to a stream timestamp with a
// confidence score. A malformed clock returns a *ValidationError; an
// unresolvable (but well-formed) request returns Success=false.
func (s *Service) Sync(ctx context.Context, req model.SyncRequest) (model.SyncResult, error) {
	reading := s.normalizer.Normalize(req.Clock)
	if !reading.Valid {
		s.metrics.SyncRequest("invalid")
		return model.SyncResult{}, &ValidationError{Reason: reading.Err}
	}

	target := float64(reading.TotalSeconds)
	match := s.searcher.Search(ctx, target)
	if match == nil {
		s.metrics.SyncRequest("no_match")
		return model.SyncResult{
			Success: false,
			Error:   "no matching segment found, stream may not have reached this timestamp yet",
		}, nil
	}

	timestamp := match.Start + match.Offset

	ocrConfidence := s.defaultOCR
	if req.OCRConfidence != nil {
		ocrConfidence = *req.OCRConfidence
	}

	confidence := s.calculator.Calculate(model.ConfidenceFactors{
		OCRConfidence:     ocrConfidence,
		ClockPlausibility: s.normalizer.PlausibilityScore(reading.TotalSeconds),
		TimeDrift:         match.Drift,
		// No gap detection exists yet; continuity is assumed. See the
		// searcher's window queries for the data a detector would use.
		SegmentContinuity: true,
		MatchType:         match.Type,
	})

	s.metrics.SyncRequest("ok")
	s.metrics.SyncConfidence(confidence.Overall)

	s.logger.Info("Sync resolved",
		zap.String("clock", req.Clock),
		zap.Float64("timestamp", timestamp),
		zap.Float64("confidence", confidence.Overall),
		zap.String("level", s.calculator.Level(confidence.Overall)),
		zap.Float64("drift", match.Drift))

	return model.SyncResult{
		Success:         true,
		Timestamp:       timestamp,
		SegmentFilename: match.Filename,
		SegmentSequence: match.Sequence,
		Confidence:      confidence.Overall,
		Drift:           match.Drift,
		Metadata: &model.SyncMetadata{
			ClockInput:   req.Clock,
			ClockSeconds: reading.TotalSeconds,
			MatchType:    match.Type,
		},
	}, nil
}

// LiveEdge returns the end timestamp of the most recently indexed
// segment. ok is false when the index is empty.
func (s *Service) LiveEdge(ctx context.Context) (float64, bool) {
	matches := s.searcher.SearchWindow(ctx, liveEdgeCenter, 2*liveEdgeCenter)
	if len(matches) == 0 {
		return 0, false
	}
	// Range results come back in ascending sequence order; the live
	// edge is the end of the last one.
	return matches[len(matches)-1].End, true
}
