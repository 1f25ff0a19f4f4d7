// Package upload converts freshly uploaded images before the host registers
// them, replacing the original file with its WebP rendition.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/metrics"
	"webpoptimizer/internal/pipeline"
	"webpoptimizer/internal/storage"
)

// Upload is the file description handed over by the upload step.
type Upload struct {
	FilePath string
	MimeType string
	URL      string
}

// Converter produces a WebP sibling for a source image.
type Converter interface {
	Convert(sourcePath string, quality int) pipeline.Result
}

// Registry records produced files as managed assets.
type Registry interface {
	Register(ctx context.Context, filePath, sourceURL string) (assets.Attachment, error)
}

// Recorder receives one event per handled upload. Optional.
type Recorder interface {
	RecordConversion(ctx context.Context, c metrics.Conversion) error
}

// Pipeline is the upload-complete hook.
type Pipeline struct {
	conv     Converter
	registry Registry
	recorder Recorder
	quality  int
	logger   *slog.Logger
}

// Config holds pipeline dependencies.
type Config struct {
	Converter Converter
	Registry  Registry
	Recorder  Recorder
	Quality   int
	Logger    *slog.Logger
}

// New creates an upload pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		conv:     cfg.Converter,
		registry: cfg.Registry,
		recorder: cfg.Recorder,
		quality:  cfg.Quality,
		logger:   cfg.Logger,
	}
}

// Handle converts the uploaded file when it is a JPEG or PNG. On success the
// WebP file is registered, the original is deleted and the returned Upload
// describes the WebP file. Otherwise the upload is returned unchanged; the
// Result says why. An error is returned only when registration or cleanup
// failed after a WebP file had been produced.
func (p *Pipeline) Handle(ctx context.Context, up Upload) (Upload, pipeline.Result, error) {
	res := pipeline.Result{Source: up.FilePath, Quality: p.quality}

	if up.FilePath == "" || !storage.Exists(up.FilePath) {
		res.Outcome = pipeline.OutcomeNotApplicable
		res.Err = fmt.Errorf("%w: file missing", pipeline.ErrNotApplicable)
		return up, res, nil
	}
	if !storage.IsConvertible(up.FilePath) {
		res.Outcome = pipeline.OutcomeNotApplicable
		res.Err = fmt.Errorf("%w: %s", pipeline.ErrNotApplicable, up.FilePath)
		return up, res, nil
	}

	res = p.conv.Convert(up.FilePath, p.quality)
	if !res.Outcome.Produced() {
		p.logger.Info("upload left as is", "path", up.FilePath, "outcome", res.Outcome, "error", res.Err)
		p.record(ctx, res, 0)
		return up, res, nil
	}

	var rollback storage.Cleanup
	rollback.Add(res.Output)

	webpURL := WebPURL(up.URL)
	att, err := p.registry.Register(ctx, res.Output, webpURL)
	if err != nil {
		// keep the original as the live file; the orphan webp would block a retry
		if rmErr := rollback.Execute(); rmErr != nil {
			p.logger.Error("remove unregistered webp", "path", res.Output, "error", rmErr)
		}
		return up, res, fmt.Errorf("register %s: %w", res.Output, err)
	}

	if err := os.Remove(up.FilePath); err != nil && !os.IsNotExist(err) {
		return Upload{FilePath: res.Output, MimeType: "image/webp", URL: webpURL}, res,
			fmt.Errorf("remove original %s: %w", up.FilePath, err)
	}

	p.record(ctx, res, att.ID)
	p.logger.Info("upload converted", "path", up.FilePath, "target", res.Output, "attachment", att.ID)
	return Upload{FilePath: res.Output, MimeType: "image/webp", URL: webpURL}, res, nil
}

// Ingest is Handle for callers that own the whole upload: when no WebP file
// was produced the original itself is registered as the managed asset.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (Upload, pipeline.Result, error) {
	out, res, err := p.Handle(ctx, up)
	if err != nil || res.Outcome.Produced() {
		return out, res, err
	}
	if !storage.Exists(out.FilePath) {
		return out, res, nil
	}
	if _, err := p.registry.Register(ctx, out.FilePath, out.URL); err != nil {
		return out, res, fmt.Errorf("register %s: %w", out.FilePath, err)
	}
	return out, res, nil
}

func (p *Pipeline) record(ctx context.Context, res pipeline.Result, attachmentID int64) {
	if p.recorder == nil {
		return
	}
	_ = p.recorder.RecordConversion(ctx, metrics.Conversion{
		Event:        metrics.EventUpload,
		Outcome:      OutcomeBucket(res.Outcome),
		AttachmentID: attachmentID,
		Bytes:        res.Bytes,
	})
}

// OutcomeBucket maps a pipeline outcome to the metrics bucket it is counted in.
func OutcomeBucket(o pipeline.Outcome) string {
	switch {
	case o.Produced():
		return metrics.OutcomeConverted
	case o.Skip():
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}

// WebPURL replaces the extension of the last path segment of a URL with .webp.
func WebPURL(u string) string {
	if u == "" {
		return ""
	}
	slash := strings.LastIndex(u, "/")
	dot := strings.LastIndex(u, ".")
	if dot <= slash {
		return u + storage.WebPExt
	}
	return u[:dot] + storage.WebPExt
}
