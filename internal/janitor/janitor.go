package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/storage"
)

// AssetStore is the part of the registry the janitor maintains.
type AssetStore interface {
	List(ctx context.Context, f assets.ListFilter) ([]assets.Attachment, error)
	MarkMissing(ctx context.Context, id int64) error
}

// EventStore prunes the activity log.
type EventStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor handles periodic cleanup of stale data and orphaned files
type Janitor struct {
	assets      AssetStore
	events      EventStore
	storagePath string
	interval    time.Duration
	retention   time.Duration
	tempMaxAge  time.Duration
	logger      *slog.Logger
	stopChan    chan struct{}
	doneChan    chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	started     bool
}

// Config holds janitor configuration
type Config struct {
	Assets      AssetStore
	Events      EventStore
	StoragePath string
	Interval    time.Duration
	// Retention is how long activity events are kept. Zero keeps them forever.
	Retention time.Duration
	// TempMaxAge is the age after which leftover temp files are removed.
	TempMaxAge time.Duration
	Logger     *slog.Logger
}

// Summary counts what one cleanup cycle removed or flagged.
type Summary struct {
	TempFiles     int
	Missing       int
	EventsDeleted int64
}

// New creates a new Janitor instance
func New(cfg Config) *Janitor {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.TempMaxAge == 0 {
		cfg.TempMaxAge = 15 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		assets:      cfg.Assets,
		events:      cfg.Events,
		storagePath: cfg.StoragePath,
		interval:    cfg.Interval,
		retention:   cfg.Retention,
		tempMaxAge:  cfg.TempMaxAge,
		logger:      logger.With("component", "janitor"),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins the cleanup scheduler in a goroutine
func (j *Janitor) Start(ctx context.Context) {
	j.startOnce.Do(func() {
		j.started = true
		go j.run(ctx)
	})
}

// Stop gracefully stops the janitor. It is a no-op when Start was never
// called and safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		// a later Start must not launch the loop
		j.startOnce.Do(func() {})
		if j.started {
			<-j.doneChan // wait for cleanup to finish
		}
	})
}

// run is the main loop that runs cleanup tasks
func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneChan)

	// Run cleanup immediately on startup
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopChan:
			j.logger.Debug("received stop signal, shutting down")
			return
		case <-ctx.Done():
			j.logger.Debug("context cancelled, shutting down")
			return
		}
	}
}

// RunOnce executes all cleanup tasks. Task failures are logged and do not
// stop the remaining tasks.
func (j *Janitor) RunOnce(ctx context.Context) Summary {
	start := time.Now()
	var s Summary

	s.TempFiles = j.cleanupTempFiles()
	s.Missing = j.markMissingAttachments(ctx)
	s.EventsDeleted = j.deleteOldActivityEvents(ctx)

	j.logger.Info("cleanup cycle completed",
		"temp_files", s.TempFiles, "missing", s.Missing, "events_deleted", s.EventsDeleted,
		"duration", time.Since(start))
	return s
}

// cleanupTempFiles removes temporary files left behind by interrupted writes.
func (j *Janitor) cleanupTempFiles() int {
	if j.storagePath == "" {
		return 0
	}
	n, err := storage.CleanOrphanedTempFiles(j.storagePath, j.tempMaxAge)
	if err != nil {
		j.logger.Warn("failed to cleanup temp files", "error", err)
	}
	return n
}

// markMissingAttachments flags live attachments whose file disappeared.
// Replaced attachments are skipped since their files are removed on purpose.
func (j *Janitor) markMissingAttachments(ctx context.Context) int {
	if j.assets == nil {
		return 0
	}
	list, err := j.assets.List(ctx, assets.ListFilter{ExcludeReplaced: true})
	if err != nil {
		j.logger.Warn("failed to list attachments", "error", err)
		return 0
	}
	marked := 0
	for _, a := range list {
		if a.Status == assets.StatusMissing || storage.Exists(a.FilePath) {
			continue
		}
		if err := j.assets.MarkMissing(ctx, a.ID); err != nil {
			j.logger.Warn("failed to mark attachment missing", "attachment", a.ID, "error", err)
			continue
		}
		j.logger.Info("attachment file missing", "attachment", a.ID, "path", a.FilePath)
		marked++
	}
	return marked
}

// deleteOldActivityEvents removes activity events older than the retention.
func (j *Janitor) deleteOldActivityEvents(ctx context.Context) int64 {
	if j.events == nil || j.retention <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-j.retention)
	n, err := j.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Warn("failed to delete old activity events", "error", err)
		return 0
	}
	return n
}
