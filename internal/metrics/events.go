package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// EventType represents where a conversion was triggered from.
type EventType string

const (
	EventUpload EventType = "upload"
	EventBulk   EventType = "bulk"
	EventCLI    EventType = "cli"
)

// Outcome buckets. Any other recorded outcome counts as a failure.
const (
	OutcomeConverted = "converted"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Conversion is one recorded conversion attempt.
type Conversion struct {
	Event        EventType
	Outcome      string
	AttachmentID int64
	BatchID      string
	Bytes        int64
}

// Logger handles activity event logging
type Logger struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new metrics logger
func New(db *sql.DB, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{db: db, logger: logger}
}

// RecordConversion inserts an activity event into the database.
func (l *Logger) RecordConversion(ctx context.Context, c Conversion) error {
	var attachmentID sql.NullInt64
	if c.AttachmentID != 0 {
		attachmentID = sql.NullInt64{Int64: c.AttachmentID, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `INSERT INTO activity_events (event_type, outcome, attachment_id, batch_id, bytes, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		string(c.Event), c.Outcome, attachmentID, c.BatchID, c.Bytes, time.Now().UTC().Format(sqliteTimeLayout))
	if err != nil {
		l.logger.Warn("metrics: failed to log event", "event", c.Event, "error", err)
	}
	return err
}

// Window holds counts for one time window.
type Window struct {
	Converted    int64
	Failed       int64
	Skipped      int64
	BytesWritten int64
}

// Stats holds aggregated metrics
type Stats struct {
	Last7Days  Window
	Last30Days Window
}

// GetStats retrieves conversion statistics for the last 7 and 30 days.
func (l *Logger) GetStats(ctx context.Context) (*Stats, error) {
	now := time.Now().UTC()

	w7, err := l.window(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	w30, err := l.window(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, err
	}
	return &Stats{Last7Days: w7, Last30Days: w30}, nil
}

func (l *Logger) window(ctx context.Context, since time.Time) (Window, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT outcome, COUNT(*), COALESCE(SUM(bytes), 0)
FROM activity_events WHERE created_at >= ? GROUP BY outcome`, since.Format(sqliteTimeLayout))
	if err != nil {
		return Window{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var w Window
	for rows.Next() {
		var (
			outcome string
			n       int64
			bytes   int64
		)
		if err := rows.Scan(&outcome, &n, &bytes); err != nil {
			return Window{}, fmt.Errorf("scan stats: %w", err)
		}
		switch outcome {
		case OutcomeConverted:
			w.Converted += n
			w.BytesWritten += bytes
		case OutcomeSkipped:
			w.Skipped += n
		default:
			w.Failed += n
		}
	}
	return w, rows.Err()
}

// DeleteOlderThan removes events created before cutoff and returns how many were removed.
func (l *Logger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM activity_events WHERE created_at < ?`, cutoff.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("delete old events: %w", err)
	}
	return res.RowsAffected()
}
