package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/batch"
	"webpoptimizer/internal/config"
	"webpoptimizer/internal/db"
	"webpoptimizer/internal/logging"
	"webpoptimizer/internal/metrics"
	"webpoptimizer/internal/pipeline"
	"webpoptimizer/internal/storage"
	"webpoptimizer/internal/upload"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.configErr = err
			return
		}
		slog.SetDefault(logger)
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

// app bundles the components shared by the commands that touch the library.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	registry  *assets.Registry
	metrics   *metrics.Logger
	converter *pipeline.Converter
	library   *storage.Storage
}

func (c *commandContext) openApp(ctx context.Context) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureDir(cfg.Storage.DataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	database, err := db.InitDB(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   c.logger,
		db:       database,
		registry: assets.New(database),
		metrics:  metrics.New(database, c.logger),
		converter: pipeline.NewConverter(pipeline.Options{
			AutoOrient:   cfg.Conversion.AutoOrient,
			MaxDimension: cfg.Conversion.MaxDimension,
		}, c.logger),
		library: storage.New(cfg.Storage.DataDir),
	}, nil
}

func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app) error) error {
	a, err := c.openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}

func (a *app) uploads() *upload.Pipeline {
	return upload.New(upload.Config{
		Converter: a.converter,
		Registry:  a.registry,
		Recorder:  a.metrics,
		Quality:   a.cfg.Conversion.Quality,
		Logger:    a.logger,
	})
}

func (a *app) runner(onProgress func(processed, total int)) *batch.Runner {
	return batch.NewRunner(batch.Config{
		Source:     a.registry,
		Converter:  a.converter,
		Recorder:   a.metrics,
		LockPath:   batch.LockPath(a.cfg.Storage.DataDir),
		OnProgress: onProgress,
		Logger:     a.logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
