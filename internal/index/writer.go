// Package index provides the durable, ordered segment index backed by
// a WAL-mode SQLite database. The index has exactly one writer process
// (the ingest watcher) and any number of read-only openers; WAL mode
// keeps reader snapshots isolated from in-flight appends.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS segments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence INTEGER UNIQUE NOT NULL,
	filename TEXT NOT NULL,
	start REAL NOT NULL,
	"end" REAL NOT NULL,
	duration REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sequence ON segments(sequence);
CREATE INDEX IF NOT EXISTS idx_start_time ON segments(start);
`

// Writer owns the single write handle to the segment index. Upserts
// are serialized by a mutex; readers in other processes are isolated
// by SQLite WAL.
type Writer struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// OpenWriter opens (creating if necessary) the index database at path,
// enables WAL mode, and ensures the schema exists.
func OpenWriter(path string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	// One writer connection, ever. The SQLite write lock would enforce
	// this anyway, but a single connection keeps upserts ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Segment index opened for writing", zap.String("path", path))

	return &Writer{db: db, logger: logger}, nil
}

// Upsert inserts the segment, or if the sequence is already indexed
// updates its filename and created_at while keeping the stored
// start/end/duration. Re-indexing the same sequence is therefore
// idempotent and never reclassifies historical rows.
func (w *Writer) Upsert(ctx context.Context, seg model.Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var existingStart float64
	err := w.db.QueryRowContext(ctx,
		`SELECT start FROM segments WHERE sequence = ?`, seg.Sequence,
	).Scan(&existingStart)
	switch {
	case err == sql.ErrNoRows:
		// First sighting of this sequence.
	case err != nil:
		return fmt.Errorf("failed to check existing segment: %w", err)
	case math.Abs(existingStart-seg.Start) > 1e-9:
		// The nominal duration changed mid-run. The stored range wins.
		w.logger.Warn("Recomputed segment start differs from indexed value, keeping stored range",
			zap.Int64("sequence", seg.Sequence),
			zap.Float64("stored_start", existingStart),
			zap.Float64("recomputed_start", seg.Start))
	}

	_, err = w.db.ExecContext(ctx, `
		INSERT INTO segments (sequence, filename, start, "end", duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sequence) DO UPDATE SET
			filename = excluded.filename,
			created_at = excluded.created_at
	`, seg.Sequence, seg.Filename, seg.Start, seg.End, seg.Duration, seg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert segment %d: %w", seg.Sequence, err)
	}

	return nil
}

// Close releases the write handle.
func (w *Writer) Close() error {
	return w.db.Close()
}
