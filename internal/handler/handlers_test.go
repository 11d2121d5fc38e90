package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apierrors "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/errors"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/handler"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/stream"
	syncsvc "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/sync"
)

// newTestRouter builds the handler set over a real temp-dir index with
// the given segments already upserted. The returned path is the
// (initially empty) HLS directory the stream handlers serve from.
func newTestRouter(t *testing.T, sequences ...int64) (*mux.Router, string) {
	t.Helper()
	logger := zap.NewNop()
	root := t.TempDir()
	dbPath := filepath.Join(root, "segments.db")

	writer, err := index.OpenWriter(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })

	for _, seq := range sequences {
		start := float64(seq) * 2
		require.NoError(t, writer.Upsert(context.Background(), model.Segment{
			Sequence:  seq,
			Filename:  "segment.ts",
			Start:     start,
			End:       start + 2,
			Duration:  2,
			CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		}))
	}

	reader := index.OpenReader(dbPath, logger)
	t.Cleanup(func() { reader.Close() })

	searcher := syncsvc.NewSearcher(reader, 0, nil, logger)
	svc := syncsvc.NewService(
		syncsvc.NewNormalizer(logger),
		searcher,
		syncsvc.NewCalculator(logger),
		0.8, nil, logger,
	)

	hlsDir := filepath.Join(root, "hls")
	require.NoError(t, os.MkdirAll(hlsDir, 0755))
	h := handler.New(svc, reader,
		stream.NewService(hlsDir, logger),
		apierrors.NewHandler(logger), logger)

	r := mux.NewRouter()
	r.HandleFunc("/api/sync", h.Sync).Methods(http.MethodPost)
	r.HandleFunc("/api/sync/live-edge", h.LiveEdge).Methods(http.MethodPost)
	r.HandleFunc("/api/index/segments", h.ListSegments).Methods(http.MethodGet)
	r.HandleFunc("/api/index/segments/{sequence}", h.GetSegment).Methods(http.MethodGet)
	r.HandleFunc("/api/index/find-by-time", h.FindByTime).Methods(http.MethodGet)
	r.HandleFunc("/api/index/stats", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/api/stream/info", h.StreamInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/stream/playlist", h.Playlist).Methods(http.MethodGet)
	r.HandleFunc("/api/stream/segments/{filename}", h.Segment).Methods(http.MethodGet)
	return r, hlsDir
}

func do(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSyncEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0, 1, 2, 3, 4)

	t.Run("resolves a valid clock", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/sync", `{"clock":"0:03","ocrConfidence":0.9}`)
		require.Equal(t, http.StatusOK, w.Code)

		var result model.SyncResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, 3.0, result.Timestamp)
		assert.Equal(t, int64(1), result.SegmentSequence)
		require.NotNil(t, result.Metadata)
		assert.Equal(t, model.MatchExact, result.Metadata.MatchType)
	})

	t.Run("rejects malformed clock", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/sync", `{"clock":"7:99"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_CLOCK")
	})

	t.Run("rejects missing clock", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/sync", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "clock parameter is required")
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/sync", `{nope}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty index is a soft failure", func(t *testing.T) {
		emptyRouter, _ := newTestRouter(t)
		w := do(emptyRouter, http.MethodPost, "/api/sync", `{"clock":"0:10"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var result model.SyncResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "no matching segment")
	})
}

func TestLiveEdgeEndpoint(t *testing.T) {
	t.Run("returns newest segment end", func(t *testing.T) {
		router, _ := newTestRouter(t, 0, 1, 2)
		w := do(router, http.MethodPost, "/api/sync/live-edge", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Success   bool    `json:"success"`
			Timestamp float64 `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, 6.0, body.Timestamp)
	})

	t.Run("unavailable without segments", func(t *testing.T) {
		router, _ := newTestRouter(t)
		w := do(router, http.MethodPost, "/api/sync/live-edge", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})
}

func TestIndexEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, 0, 1, 2, 3, 4)

	t.Run("list recent segments", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/segments?limit=2", "")
		require.Equal(t, http.StatusOK, w.Code)

		var segments []model.Segment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &segments))
		require.Len(t, segments, 2)
		assert.Equal(t, int64(4), segments[0].Sequence)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/segments?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get by sequence", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/segments/2", "")
		require.Equal(t, http.StatusOK, w.Code)

		var seg model.Segment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seg))
		assert.Equal(t, 4.0, seg.Start)
	})

	t.Run("unknown sequence is 404", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/segments/77", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})

	t.Run("find by time", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/find-by-time?timestamp=5.5", "")
		require.Equal(t, http.StatusOK, w.Code)

		var seg model.Segment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seg))
		assert.Equal(t, int64(2), seg.Sequence)
	})

	t.Run("find by time rejects junk", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/find-by-time?timestamp=soon", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/index/stats", "")
		require.Equal(t, http.StatusOK, w.Code)

		var stats model.IndexStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, int64(5), stats.TotalSegments)
		assert.Equal(t, 10.0, stats.TotalDuration)
	})
}

func TestStreamInfoEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/api/stream/info", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info model.StreamInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "offline", info.Status)
}

func TestStreamFileEndpoints(t *testing.T) {
	router, hlsDir := newTestRouter(t)

	t.Run("playlist 404 while offline", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/stream/playlist", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("serves playlist once live", func(t *testing.T) {
		playlist := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXT-X-MEDIA-SEQUENCE:0\n"
		require.NoError(t, os.WriteFile(filepath.Join(hlsDir, "index.m3u8"), []byte(playlist), 0644))

		w := do(router, http.MethodGet, "/api/stream/playlist", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "#EXTM3U")
	})

	t.Run("serves a segment file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(hlsDir, "segment0.ts"), []byte("payload"), 0644))

		w := do(router, http.MethodGet, "/api/stream/segments/segment0.ts", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "video/mp2t", w.Header().Get("Content-Type"))
		assert.Equal(t, "payload", w.Body.String())
	})

	t.Run("missing segment is 404", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/stream/segments/segment99.ts", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects non-segment filenames", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/stream/segments/index.m3u8", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
