// Package handler provides the HTTP handlers exposing the sync and
// index operations.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	apierrors "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/errors"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/stream"
	syncsvc "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/sync"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	syncService  *syncsvc.Service
	reader       *index.Reader
	stream       *stream.Service
	errorHandler *apierrors.Handler
	logger       *zap.Logger
}

// New creates the handler set.
func New(
	syncService *syncsvc.Service,
	reader *index.Reader,
	streamService *stream.Service,
	errorHandler *apierrors.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		syncService:  syncService,
		reader:       reader,
		stream:       streamService,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Sync handles POST /api/sync: resolve a clock reading to a stream
// timestamp. Malformed clocks are 400s; an unresolvable request is a
// 200 with success=false so clients can retry as the index grows.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req model.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid JSON body", requestID)
		return
	}
	if req.Clock == "" {
		h.errorHandler.WriteValidationError(w, "clock parameter is required", requestID)
		return
	}

	result, err := h.syncService.Sync(r.Context(), req)
	if err != nil {
		var verr *syncsvc.ValidationError
		if errors.As(err, &verr) {
			h.errorHandler.WriteErrorResponse(w, http.StatusBadRequest,
				apierrors.ErrorCodeInvalidClock, verr.Reason, requestID)
			return
		}
		h.errorHandler.WriteInternalError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// LiveEdge handles POST /api/sync/live-edge: the end timestamp of the
// newest indexed segment, for clients falling back from a low
// confidence sync.
func (h *Handlers) LiveEdge(w http.ResponseWriter, r *http.Request) {
	edge, ok := h.syncService.LiveEdge(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "no segments available",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": edge,
	})
}

// ListSegments handles GET /api/index/segments?limit=N: the newest
// segments, highest sequence first.
func (h *Handlers) ListSegments(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			h.errorHandler.WriteValidationError(w, "limit must be a positive integer", requestID)
			return
		}
		limit = v
	}

	segments, err := h.reader.Recent(r.Context(), limit)
	if err != nil {
		h.errorHandler.WriteInternalError(w, err, requestID)
		return
	}
	if segments == nil {
		segments = []model.Segment{}
	}
	h.writeJSON(w, http.StatusOK, segments)
}

// GetSegment handles GET /api/index/segments/{sequence}.
func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	sequence, err := strconv.ParseInt(mux.Vars(r)["sequence"], 10, 64)
	if err != nil || sequence < 0 {
		h.errorHandler.WriteValidationError(w, "sequence must be a non-negative integer", requestID)
		return
	}

	seg, err := h.reader.BySequence(r.Context(), sequence)
	if err != nil {
		h.errorHandler.WriteInternalError(w, err, requestID)
		return
	}
	if seg == nil {
		h.errorHandler.WriteErrorResponse(w, http.StatusNotFound,
			apierrors.ErrorCodeNotFound, "segment not found", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, seg)
}

// FindByTime handles GET /api/index/find-by-time?timestamp=T: the
// segment containing T, or the closest one.
func (h *Handlers) FindByTime(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	ts, err := strconv.ParseFloat(r.URL.Query().Get("timestamp"), 64)
	if err != nil {
		h.errorHandler.WriteValidationError(w, "timestamp must be a number", requestID)
		return
	}

	seg, err := h.reader.ByTime(r.Context(), ts)
	if err != nil {
		h.errorHandler.WriteInternalError(w, err, requestID)
		return
	}
	if seg == nil {
		h.errorHandler.WriteErrorResponse(w, http.StatusNotFound,
			apierrors.ErrorCodeNotFound, "no segment near the given timestamp", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, seg)
}

// Stats handles GET /api/index/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		h.errorHandler.WriteInternalError(w, err, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// StreamInfo handles GET /api/stream/info.
func (h *Handlers) StreamInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.stream.Info())
}

// Playlist handles GET /api/stream/playlist: the live HLS playlist for
// browser players.
func (h *Handlers) Playlist(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	path := h.stream.PlaylistPath()
	if _, err := os.Stat(path); err != nil {
		h.errorHandler.WriteErrorResponse(w, http.StatusNotFound,
			apierrors.ErrorCodeNotFound, "stream is offline", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

// Segment handles GET /api/stream/segments/{filename}: serves one
// media segment to the player.
func (h *Handlers) Segment(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	filename := mux.Vars(r)["filename"]
	if !strings.HasSuffix(filename, ".ts") {
		h.errorHandler.WriteValidationError(w, "filename must be a .ts segment", requestID)
		return
	}

	path := h.stream.SegmentPath(filename)
	if _, err := os.Stat(path); err != nil {
		h.errorHandler.WriteErrorResponse(w, http.StatusNotFound,
			apierrors.ErrorCodeNotFound, "segment file not found", requestID)
		return
	}
	w.Header().Set("Content-Type", "video/mp2t")
	http.ServeFile(w, r, path)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
