// Package assets is the registry of managed attachments: files under the
// library root that have a database record.
package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"webpoptimizer/internal/storage"
)

// ErrNotFound is returned when no attachment matches the requested id.
var ErrNotFound = errors.New("attachment not found")

// Attachment statuses.
const (
	StatusInherit = "inherit"
	StatusMissing = "missing"
)

// ConvertibleMimeTypes are the source types the bulk action picks up.
var ConvertibleMimeTypes = []string{"image/jpeg", "image/png"}

// Attachment is one managed asset.
type Attachment struct {
	ID         int64
	FilePath   string
	GUID       string
	MimeType   string
	Title      string
	Status     string
	ParentID   sql.NullInt64
	ReplacedBy sql.NullInt64
	CreatedAt  time.Time
}

// URL returns the public URL recorded for the attachment.
func (a Attachment) URL() string {
	return a.GUID
}

// Replaced reports whether a converted copy superseded this attachment.
func (a Attachment) Replaced() bool {
	return a.ReplacedBy.Valid
}

// Registry reads and writes attachment records.
type Registry struct {
	db *sql.DB
}

// New creates a Registry backed by db.
func New(db *sql.DB) *Registry {
	return &Registry{db: db}
}

// Ping checks DB connectivity.
func (r *Registry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const attachmentColumns = `id, file_path, guid, mime_type, title, status, parent_id, replaced_by, created_at`

// Register records filePath as a new managed asset whose guid is sourceURL.
// The MIME type and title are derived from the file name.
func (r *Registry) Register(ctx context.Context, filePath, sourceURL string) (Attachment, error) {
	return r.insert(ctx, filePath, sourceURL, sql.NullInt64{})
}

// RegisterDerived is Register for a file produced from the attachment parentID.
func (r *Registry) RegisterDerived(ctx context.Context, filePath, sourceURL string, parentID int64) (Attachment, error) {
	return r.insert(ctx, filePath, sourceURL, sql.NullInt64{Int64: parentID, Valid: true})
}

func (r *Registry) insert(ctx context.Context, filePath, sourceURL string, parent sql.NullInt64) (Attachment, error) {
	row := r.db.QueryRowContext(ctx, `INSERT INTO attachments (file_path, guid, mime_type, title, status, parent_id)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING `+attachmentColumns,
		filePath, sourceURL, storage.MimeType(filePath), storage.Title(filePath), StatusInherit, parent)
	a, err := scanAttachment(row)
	if err != nil {
		return Attachment{}, fmt.Errorf("insert attachment %s: %w", filePath, err)
	}
	return a, nil
}

// Get returns the attachment with the given id.
func (r *Registry) Get(ctx context.Context, id int64) (Attachment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attachment{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("get attachment %d: %w", id, err)
	}
	return a, nil
}

// ListFilter narrows List. Zero values mean no restriction.
type ListFilter struct {
	MimeTypes       []string
	ExcludeReplaced bool
	Limit           int
	Offset          int
}

// List returns attachments in id order.
func (r *Registry) List(ctx context.Context, f ListFilter) ([]Attachment, error) {
	var (
		where []string
		args  []any
	)
	if len(f.MimeTypes) > 0 {
		where = append(where, "mime_type IN (?"+strings.Repeat(", ?", len(f.MimeTypes)-1)+")")
		for _, mt := range f.MimeTypes {
			args = append(args, mt)
		}
	}
	if f.ExcludeReplaced {
		where = append(where, "replaced_by IS NULL")
	}

	q := `SELECT ` + attachmentColumns + ` FROM attachments`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListConvertible returns every JPEG and PNG attachment that has not been
// replaced by a converted copy yet.
func (r *Registry) ListConvertible(ctx context.Context) ([]Attachment, error) {
	return r.List(ctx, ListFilter{MimeTypes: ConvertibleMimeTypes, ExcludeReplaced: true})
}

// MarkReplaced links the attachment id to the attachment that superseded it.
func (r *Registry) MarkReplaced(ctx context.Context, id, replacementID int64) error {
	return r.update(ctx, `UPDATE attachments SET replaced_by = ? WHERE id = ?`, replacementID, id)
}

// MarkMissing flags an attachment whose file is no longer on disk.
func (r *Registry) MarkMissing(ctx context.Context, id int64) error {
	return r.update(ctx, `UPDATE attachments SET status = ? WHERE id = ?`, StatusMissing, id)
}

func (r *Registry) update(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of attachment records.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttachment(s scanner) (Attachment, error) {
	var a Attachment
	err := s.Scan(&a.ID, &a.FilePath, &a.GUID, &a.MimeType, &a.Title, &a.Status, &a.ParentID, &a.ReplacedBy, timestamp{&a.CreatedAt})
	return a, err
}
