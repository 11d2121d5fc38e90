package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/model"
)

// Reader provides read-only access to the segment index. The database
// may not exist yet when the reader is constructed (the writer process
// creates it lazily); until it appears, every query returns empty
// results and the reader retries the open on the next call.
type Reader struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	db     *sql.DB
	warned bool
}

// OpenReader constructs a reader for the index at path. The underlying
// database is opened lazily on first use.
func OpenReader(path string, logger *zap.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// ensure returns the open database handle, attempting the read-only
// open if the index file has appeared since the last call. A nil
// return means "no index yet", which callers treat as an empty index.
func (r *Reader) ensure() *sql.DB {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db
	}

	if _, err := os.Stat(r.path); err != nil {
		if !r.warned {
			r.logger.Info("Segment index not yet available, treating as empty",
				zap.String("path", r.path))
			r.warned = true
		}
		return nil
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", r.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		r.logger.Warn("Failed to open segment index read-only", zap.Error(err))
		return nil
	}
	if err := db.Ping(); err != nil {
		db.Close()
		r.logger.Warn("Failed to ping segment index", zap.Error(err))
		return nil
	}

	r.logger.Info("Connected to segment index", zap.String("path", r.path))
	r.db = db
	return r.db
}

const segmentColumns = `id, sequence, filename, start, "end", duration, created_at`

func scanSegment(row interface{ Scan(...any) error }) (model.Segment, error) {
	var s model.Segment
	err := row.Scan(&s.ID, &s.Sequence, &s.Filename, &s.Start, &s.End, &s.Duration, &s.CreatedAt)
	return s, err
}

func (r *Reader) querySegments(ctx context.Context, query string, args ...any) ([]model.Segment, error) {
	db := r.ensure()
	if db == nil {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// All returns every indexed segment ordered ascending by sequence.
func (r *Reader) All(ctx context.Context) ([]model.Segment, error) {
	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments ORDER BY sequence ASC`)
}

// Recent returns the newest segments, highest sequence first.
func (r *Reader) Recent(ctx context.Context, limit int) ([]model.Segment, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments ORDER BY sequence DESC LIMIT ?`, limit)
}

// Range returns segments whose time interval intersects [start, end],
// ordered ascending by sequence.
func (r *Reader) Range(ctx context.Context, start, end float64) ([]model.Segment, error) {
	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE "end" >= ? AND start <= ? ORDER BY sequence ASC`,
		start, end)
}

// BySequence returns the segment with the given sequence, or nil if it
// is not indexed.
func (r *Reader) BySequence(ctx context.Context, sequence int64) (*model.Segment, error) {
	db := r.ensure()
	if db == nil {
		return nil, nil
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE sequence = ?`, sequence)
	s, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch segment %d: %w", sequence, err)
	}
	return &s, nil
}

// ByTime returns the segment containing ts, falling back to the
// segment whose start is closest to ts. Nil means the index is empty.
func (r *Reader) ByTime(ctx context.Context, ts float64) (*model.Segment, error) {
	db := r.ensure()
	if db == nil {
		return nil, nil
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE start <= ? AND "end" >= ? LIMIT 1`, ts, ts)
	s, err := scanSegment(row)
	if err == nil {
		return &s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find segment by time: %w", err)
	}

	row = db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments ORDER BY ABS(start - ?) ASC LIMIT 1`, ts)
	s, err = scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find closest segment: %w", err)
	}
	return &s, nil
}

// Stats summarizes the index. An absent index reports zero segments.
func (r *Reader) Stats(ctx context.Context) (model.IndexStats, error) {
	var stats model.IndexStats

	db := r.ensure()
	if db == nil {
		return stats, nil
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM segments`).Scan(&stats.TotalSegments); err != nil {
		return stats, fmt.Errorf("failed to count segments: %w", err)
	}
	if stats.TotalSegments == 0 {
		return stats, nil
	}

	oldest, err := scanSegmentRow(db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments ORDER BY sequence ASC LIMIT 1`))
	if err != nil {
		return stats, fmt.Errorf("failed to fetch oldest segment: %w", err)
	}
	newest, err := scanSegmentRow(db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments ORDER BY sequence DESC LIMIT 1`))
	if err != nil {
		return stats, fmt.Errorf("failed to fetch newest segment: %w", err)
	}

	stats.OldestSegment = oldest
	stats.NewestSegment = newest
	stats.TotalDuration = newest.End - oldest.Start
	return stats, nil
}

func scanSegmentRow(row *sql.Row) (*model.Segment, error) {
	s, err := scanSegment(row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Close releases the read handle if one was opened.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
