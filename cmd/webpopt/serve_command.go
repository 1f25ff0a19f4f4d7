package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"webpoptimizer/internal/handler"
	"webpoptimizer/internal/janitor"
	"webpoptimizer/internal/middleware"
	"webpoptimizer/internal/security"
	"webpoptimizer/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noInbox bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, inbox watcher and janitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withApp(cmd, func(a *app) error {
				return serve(runCtx, a, !noInbox)
			})
		},
	}

	cmd.Flags().BoolVar(&noInbox, "no-inbox", false, "Do not watch the inbox directory")
	return cmd
}

func serve(ctx context.Context, a *app, watchInbox bool) error {
	// the worker and janitor only exit once ctx is done
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := a.cfg
	uploads := a.uploads()

	creds := security.AdminCredentials{User: cfg.Admin.User, PasswordHash: cfg.Admin.PasswordHash}
	if !creds.Configured() {
		a.logger.Warn("admin credentials not configured, admin routes will reject every request")
	}
	proxies, err := cfg.TrustedProxyCIDRs()
	if err != nil {
		return err
	}
	var limiter *middleware.RateLimiter
	if cfg.Server.AdminRateLimit > 0 {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Server.AdminRateLimit,
			TrustedProxies:    proxies,
			Logger:            a.logger,
		})
	}

	h := handler.New(handler.Config{
		Registry: a.registry,
		Uploads:  uploads,
		Runner: a.runner(func(done, total int) {
			a.logger.Info("bulk progress", "processed", done, "total", total)
		}),
		Metrics: a.metrics,
		Library: a.library,
		SiteURL: cfg.Server.SiteURL,
		Quality: cfg.Conversion.Quality,
		Logger:  a.logger,
	})

	j := janitor.New(janitor.Config{
		Assets:      a.registry,
		Events:      a.metrics,
		StoragePath: cfg.Storage.DataDir,
		Interval:    cfg.JanitorInterval(),
		Retention:   cfg.EventRetention(),
		Logger:      a.logger,
	})
	j.Start(ctx)
	defer j.Stop()

	if watchInbox {
		w := worker.NewWorker(worker.Config{
			InboxDir:     cfg.Storage.InboxDir,
			Library:      a.library,
			SiteURL:      cfg.Server.SiteURL,
			Ingester:     uploads,
			PollInterval: cfg.PollInterval(),
			Logger:       a.logger,
		})
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Router(handler.RouteOptions{Auth: creds, RateLimit: limiter}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		cancel()
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
