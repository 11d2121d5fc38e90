// Package health provides liveness and readiness endpoints.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
)

// Check serves health probes for the sync API. Readiness probes the
// segment index; an index that does not exist yet still counts as
// ready, because an empty index is a legitimate early state.
type Check struct {
	reader *index.Reader
	logger *zap.Logger
}

// NewCheck creates a health check over the index reader.
func NewCheck(reader *index.Reader, logger *zap.Logger) *Check {
	return &Check{reader: reader, logger: logger}
}

type response struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Liveness handles GET /health. 200 as long as the process runs.
func (c *Check) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{
		Status:    "healthy",
		Service:   "sync-api",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /ready. 200 when the index is queryable (or
// legitimately absent), 503 when queries fail.
func (c *Check) Readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := c.reader.Stats(r.Context()); err != nil {
		c.logger.Warn("Readiness probe failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, response{
			Status:    "unavailable",
			Service:   "sync-api",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Status:    "ready",
		Service:   "sync-api",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
