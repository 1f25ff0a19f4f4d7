// Package batch runs the bulk conversion action over registered attachments.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/metrics"
	"webpoptimizer/internal/security"
	"webpoptimizer/internal/storage"
	"webpoptimizer/internal/upload"
)

// ErrBatchRunning is returned when another bulk run holds the lock.
var ErrBatchRunning = errors.New("bulk conversion already running")

// LockFile is the name of the lock file created in the data directory.
const LockFile = ".bulk.lock"

// Source is the attachment store a run reads from and writes to.
type Source interface {
	Get(ctx context.Context, id int64) (assets.Attachment, error)
	ListConvertible(ctx context.Context) ([]assets.Attachment, error)
	RegisterDerived(ctx context.Context, filePath, sourceURL string, parentID int64) (assets.Attachment, error)
	MarkReplaced(ctx context.Context, id, replacementID int64) error
}

// Config holds Runner dependencies.
type Config struct {
	Source     Source
	Converter  upload.Converter
	Authorizer security.Authorizer
	Recorder   upload.Recorder
	// LockPath is the flock file guarding runs across processes. Empty
	// disables cross-process locking.
	LockPath string
	// OnProgress is called after each item with the number of processed
	// items and the total.
	OnProgress func(processed, total int)
	Logger     *slog.Logger
}

// Runner executes bulk conversions one attachment at a time.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// NewRunner creates a Runner. A nil Authorizer defaults to security.RequireAdmin.
func NewRunner(cfg Config) *Runner {
	if cfg.Authorizer == nil {
		cfg.Authorizer = security.RequireAdmin
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// LockPath returns the default lock file location inside dataDir.
func LockPath(dataDir string) string {
	return filepath.Join(dataDir, LockFile)
}

// RunAll converts every convertible attachment that has not been replaced yet.
func (r *Runner) RunAll(ctx context.Context, p security.Principal, quality int) (*Report, error) {
	if err := r.authorize(ctx, p); err != nil {
		return nil, err
	}
	list, err := r.cfg.Source.ListConvertible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list convertible attachments: %w", err)
	}
	ids := make([]int64, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	return r.Run(ctx, p, ids, quality)
}

// Run converts the attachments with the given ids, in order. Per-item
// failures are recorded in the report and never abort the run.
func (r *Runner) Run(ctx context.Context, p security.Principal, ids []int64, quality int) (*Report, error) {
	if err := r.authorize(ctx, p); err != nil {
		return nil, err
	}

	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	report := &Report{
		ID:      uuid.NewString(),
		Quality: quality,
		Started: time.Now(),
		Items:   make([]ItemResult, 0, len(ids)),
	}
	log := r.logger.With("batch", report.ID)
	log.Info("bulk conversion started", "items", len(ids), "quality", quality, "principal", p.Name)

	for i, id := range ids {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		item := r.convertOne(ctx, id, quality)
		report.Items = append(report.Items, item)
		r.record(ctx, report.ID, item)

		log.Debug("bulk item done", "attachment", id, "outcome", item.Outcome, "progress", fmt.Sprintf("%d/%d", i+1, len(ids)))
		if r.cfg.OnProgress != nil {
			r.cfg.OnProgress(i+1, len(ids))
		}
	}

	report.Finished = time.Now()
	log.Info("bulk conversion finished", "summary", report.Summary())
	return report, nil
}

func (r *Runner) authorize(ctx context.Context, p security.Principal) error {
	if err := r.cfg.Authorizer.Authorize(ctx, p); err != nil {
		r.logger.Warn("bulk conversion refused", "principal", p.Name, "error", err)
		if errors.Is(err, security.ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", security.ErrUnauthorized, err)
	}
	return nil
}

func (r *Runner) lock() (func(), error) {
	if r.cfg.LockPath == "" {
		return func() {}, nil
	}
	if err := storage.EnsureDir(filepath.Dir(r.cfg.LockPath)); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(r.cfg.LockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire bulk lock: %w", err)
	}
	if !ok {
		return nil, ErrBatchRunning
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			r.logger.Warn("release bulk lock", "path", r.cfg.LockPath, "error", err)
		}
	}, nil
}

func (r *Runner) convertOne(ctx context.Context, id int64, quality int) ItemResult {
	item := ItemResult{AttachmentID: id}

	att, err := r.cfg.Source.Get(ctx, id)
	if err != nil {
		item.Outcome = OutcomeMissing
		item.Error = err.Error()
		return item
	}
	item.Source = att.FilePath
	if !storage.Exists(att.FilePath) {
		item.Outcome = OutcomeMissing
		item.Error = "file not found"
		return item
	}

	res := r.cfg.Converter.Convert(att.FilePath, quality)
	item.Outcome = res.Outcome
	if res.Err != nil {
		item.Error = res.Err.Error()
	}
	if !res.Outcome.Produced() {
		return item
	}
	item.Output = res.Output
	item.Bytes = res.Bytes

	var rollback storage.Cleanup
	rollback.Add(res.Output)

	derived, err := r.cfg.Source.RegisterDerived(ctx, res.Output, derivedURL(att.URL(), res.Output), att.ID)
	if err != nil {
		if rmErr := rollback.Execute(); rmErr != nil {
			r.logger.Error("remove unregistered webp", "path", res.Output, "error", rmErr)
		}
		item.Outcome = OutcomeRegisterFailed
		item.Output = ""
		item.Bytes = 0
		item.Error = fmt.Sprintf("register %s: %v", res.Output, err)
		return item
	}
	item.NewAttachmentID = derived.ID

	if err := r.cfg.Source.MarkReplaced(ctx, att.ID, derived.ID); err != nil {
		item.Error = fmt.Sprintf("mark replaced: %v", err)
		return item
	}
	if err := os.Remove(att.FilePath); err != nil && !os.IsNotExist(err) {
		item.Error = fmt.Sprintf("remove original: %v", err)
	}
	return item
}

func (r *Runner) record(ctx context.Context, batchID string, item ItemResult) {
	if r.cfg.Recorder == nil {
		return
	}
	attachmentID := item.NewAttachmentID
	if attachmentID == 0 {
		attachmentID = item.AttachmentID
	}
	_ = r.cfg.Recorder.RecordConversion(ctx, metrics.Conversion{
		Event:        metrics.EventBulk,
		Outcome:      upload.OutcomeBucket(item.Outcome),
		AttachmentID: attachmentID,
		BatchID:      batchID,
		Bytes:        item.Bytes,
	})
}

// derivedURL is the guid of the converted file. Attachments registered
// without a URL fall back to the output file name.
func derivedURL(u, output string) string {
	if u == "" {
		return filepath.Base(output)
	}
	return upload.WebPURL(u)
}
