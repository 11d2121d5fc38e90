// Package watcher observes the HLS output directory and registers
// newly completed segment files in the index.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

// segmentPattern matches the packager's naming scheme. Anything else
// in the directory (playlists, temp files) is not a segment.
var segmentPattern = regexp.MustCompile(`segment(\d+)\.ts$`)

// Config holds watcher configuration.
type Config struct {
	// Dir is the monitored HLS output directory.
	Dir string
	// SegmentDuration is the nominal segment length in seconds,
	// shared with the packager.
	SegmentDuration float64
	// SettleWindow is how long a file must stay quiet before it is
	// considered fully written and safe to index.
	SettleWindow time.Duration
}

// Watcher is the single-writer ingest loop: it scans the directory on
// startup, then reacts to filesystem events, debouncing each file with
// a settle timer before upserting it into the index.
type Watcher struct {
	cfg     Config
	store   *index.Writer
	fsw     *fsnotify.Watcher
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a watcher over cfg.Dir writing into store. The directory
// is created if it does not exist yet.
func New(cfg Config, store *index.Writer, m *metrics.Metrics, logger *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}

	return &Watcher{
		cfg:     cfg,
		store:   store,
		fsw:     fsw,
		metrics: m,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}, nil
}

// Start indexes every segment already present in the directory, then
// begins reacting to filesystem events. It returns once the startup
// scan is complete; event handling continues in the background until
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to enumerate existing segments: %w", err)
	}

	indexed := 0
	for _, entry := range entries {
		// Playlists and temp files live in the same directory; only
		// .ts files are candidate segments.
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".ts" {
			continue
		}
		if w.indexFile(ctx, entry.Name()) {
			indexed++
		}
	}
	w.logger.Info("Startup scan complete",
		zap.Int("indexed", indexed),
		zap.String("dir", w.cfg.Dir))

	w.wg.Add(1)
	go w.loop()
	return nil
}

// loop consumes filesystem events until the watcher is stopped. Watch
// errors are logged and swallowed; the loop must survive IO hiccups.
func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !segmentPattern.MatchString(name) {
				continue
			}
			w.settle(name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.metrics.IngestError()
			w.logger.Warn("Filesystem watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// settle (re)arms the per-file settle timer. The file is indexed only
// after it has stopped changing for the configured window, so a
// half-written segment is never upserted.
func (w *Watcher) settle(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.cfg.SettleWindow, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.timers, name)
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		// The producer may have already rotated the file away.
		if _, err := os.Stat(filepath.Join(w.cfg.Dir, name)); err != nil {
			w.logger.Warn("Segment vanished before settling", zap.String("filename", name))
			return
		}
		w.indexFile(context.Background(), name)
	})
}

// indexFile derives the segment's time range from its filename and
// upserts it. It reports whether an upsert happened.
func (w *Watcher) indexFile(ctx context.Context, name string) bool {
	m := segmentPattern.FindStringSubmatch(name)
	if m == nil {
		w.metrics.IngestSkipped()
		w.logger.Warn("Skipped file with unrecognized name", zap.String("filename", name))
		return false
	}

	sequence, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		w.metrics.IngestSkipped()
		w.logger.Warn("Skipped file with unparseable sequence",
			zap.String("filename", name), zap.Error(err))
		return false
	}

	start := float64(sequence) * w.cfg.SegmentDuration
	seg := model.Segment{
		Sequence:  sequence,
		Filename:  name,
		Start:     start,
		End:       start + w.cfg.SegmentDuration,
		Duration:  w.cfg.SegmentDuration,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := w.store.Upsert(ctx, seg); err != nil {
		w.metrics.IngestError()
		w.logger.Error("Failed to index segment",
			zap.String("filename", name), zap.Error(err))
		return false
	}

	w.metrics.SegmentIndexed()
	w.logger.Info("Indexed segment",
		zap.String("filename", name),
		zap.Int64("sequence", sequence),
		zap.Float64("start", seg.Start),
		zap.Float64("end", seg.End))
	return true
}

// Stop shuts the watcher down: no new events are accepted, pending
// settle timers are cancelled, in-flight upserts drain, and the write
// handle is closed.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	close(w.done)
	w.fsw.Close()
	w.wg.Wait()

	if err := w.store.Close(); err != nil {
		w.logger.Warn("Failed to close segment index", zap.Error(err))
	}
	w.logger.Info("Watcher stopped")
}
