package server_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/config"
	apierrors "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/errors"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/handler"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/health"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/server"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/stream"
	syncsvc "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/sync"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.Default()
	cfg.RateLimiter.Enabled = false
	cfg.Metrics.Enabled = true

	root := t.TempDir()
	reader := index.OpenReader(filepath.Join(root, "segments.db"), logger)
	t.Cleanup(func() { reader.Close() })

	m := metrics.New()
	searcher := syncsvc.NewSearcher(reader, 0, m, logger)
	svc := syncsvc.NewService(
		syncsvc.NewNormalizer(logger),
		searcher,
		syncsvc.NewCalculator(logger),
		cfg.Sync.DefaultOCRConfidence, m, logger,
	)
	handlers := handler.New(svc, reader,
		stream.NewService(filepath.Join(root, "hls"), logger),
		apierrors.NewHandler(logger), logger)

	srv := server.New(cfg, handlers, health.NewCheck(reader, logger), m, logger)
	srv.SetupRoutes()
	return srv
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"liveness", http.MethodGet, "/health", http.StatusOK},
		{"readiness", http.MethodGet, "/ready", http.StatusOK},
		{"metrics scrape", http.MethodGet, "/metrics", http.StatusOK},
		{"stream info", http.MethodGet, "/api/stream/info", http.StatusOK},
		{"index stats", http.MethodGet, "/api/index/stats", http.StatusOK},
		{"segments list", http.MethodGet, "/api/index/segments", http.StatusOK},
		{"sync requires a body", http.MethodPost, "/api/sync", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/sync", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestServerAssignsRequestIDs(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/index/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
