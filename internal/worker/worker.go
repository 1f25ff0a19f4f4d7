// Package worker watches the inbox directory and feeds dropped files through
// the upload pipeline.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"webpoptimizer/internal/pipeline"
	"webpoptimizer/internal/storage"
	"webpoptimizer/internal/upload"
)

// Ingester converts and registers one upload.
type Ingester interface {
	Ingest(ctx context.Context, up upload.Upload) (upload.Upload, pipeline.Result, error)
}

// Config holds worker settings.
type Config struct {
	InboxDir string
	Library  *storage.Storage
	SiteURL  string
	Ingester Ingester
	// PollInterval is the fallback scan period. Defaults to 2s.
	PollInterval time.Duration
	// Settle is how long a file must stay unmodified before it is picked up.
	// Defaults to 500ms.
	Settle time.Duration
	Logger *slog.Logger
	// OnProcessed is called after each inbox file is handled.
	OnProcessed func(up upload.Upload, res pipeline.Result, err error)
}

// Worker moves inbox files into the library and converts them.
type Worker struct {
	cfg     Config
	logger  *slog.Logger
	trigger chan struct{}  // wakes the loop immediately
	wg      sync.WaitGroup // tracks the loop goroutine
}

// NewWorker creates an inbox worker.
func NewWorker(cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:     cfg,
		logger:  logger.With("component", "worker"),
		trigger: make(chan struct{}, 1),
	}
}

// Start creates the inbox, subscribes to it and runs the loop until ctx is
// cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if err := storage.EnsureDir(w.cfg.InboxDir); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	if err := storage.EnsureDir(w.cfg.Library.BaseDir); err != nil {
		return fmt.Errorf("create library: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.cfg.InboxDir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch inbox %s: %w", w.cfg.InboxDir, err)
	}
	w.logger.Info("watching inbox", "path", w.cfg.InboxDir)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		w.loop(ctx, fsw)
	}()

	// pick up files dropped while the process was down
	w.TriggerSignal()
	return nil
}

func (w *Worker) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	debounce := make(map[string]*time.Timer)
	defer func() {
		for _, t := range debounce {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("context cancelled, stopping loop")
			return
		case <-ticker.C:
			w.processInbox(ctx)
		case <-w.trigger:
			w.processInbox(ctx)
			for name := range debounce {
				if !storage.Exists(name) {
					delete(debounce, name)
				}
			}
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if skipName(filepath.Base(event.Name)) {
				continue
			}
			if t, exists := debounce[event.Name]; exists {
				t.Stop()
			}
			debounce[event.Name] = time.AfterFunc(w.cfg.Settle, w.TriggerSignal)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Stop waits for the loop to exit after its context is cancelled.
func (w *Worker) Stop() {
	w.logger.Debug("waiting for active jobs to finish")
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// TriggerSignal wakes up the worker to scan the inbox immediately.
func (w *Worker) TriggerSignal() {
	select {
	case w.trigger <- struct{}{}:
	default:
		// already triggered
	}
}

// processInbox handles every settled file currently in the inbox.
func (w *Worker) processInbox(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.InboxDir)
	if err != nil {
		w.logger.Error("read inbox", "path", w.cfg.InboxDir, "error", err)
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if !e.Type().IsRegular() || skipName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || time.Since(info.ModTime()) < w.cfg.Settle {
			continue
		}
		w.processFile(ctx, filepath.Join(w.cfg.InboxDir, e.Name()))
	}
}

func (w *Worker) processFile(ctx context.Context, path string) {
	dst := storage.UniquePath(w.cfg.Library.UploadsDir(), filepath.Base(path))
	if err := storage.EnsureDir(filepath.Dir(dst)); err != nil {
		w.logger.Error("create uploads dir", "error", err)
		return
	}
	if err := os.Rename(path, dst); err != nil {
		w.logger.Error("move inbox file", "path", path, "error", err)
		return
	}
	url, err := w.cfg.Library.URL(w.cfg.SiteURL, dst)
	if err != nil {
		w.logger.Warn("build url", "path", dst, "error", err)
	}

	up := upload.Upload{FilePath: dst, MimeType: storage.MimeType(dst), URL: url}
	out, res, err := w.cfg.Ingester.Ingest(ctx, up)
	if err != nil {
		w.logger.Error("inbox upload failed", "path", dst, "error", err)
	}
	w.logger.Info("inbox file processed", "path", dst, "outcome", res.Outcome)
	if w.cfg.OnProcessed != nil {
		w.cfg.OnProcessed(out, res, err)
	}
}

// skipName ignores hidden files and our own temp files.
func skipName(name string) bool {
	return name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, storage.TempPrefix)
}
