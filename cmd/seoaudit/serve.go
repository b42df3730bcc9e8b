package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmn-raj/seo-tool/analyzer"
	"github.com/rmn-raj/seo-tool/api"
	"github.com/rmn-raj/seo-tool/config"
	"github.com/rmn-raj/seo-tool/metrics"
	"github.com/rmn-raj/seo-tool/scraper"
	"github.com/rmn-raj/seo-tool/webhook"
	"github.com/spf13/cobra"
)

const (
	shutdownGrace      = 5 * time.Second
	poolReportInterval = 5 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("seoaudit starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browser", cfg.Browser.Enabled,
	)

	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		svc.dispatcher.SetObserver(m)
	}

	notifier := webhook.New(cfg.Webhook.Secret, cfg.Webhook.Timeout)
	defer notifier.Wait()

	az := analyzer.New(svc.dispatcher,
		analyzer.WithMetrics(m),
		analyzer.WithNotifier(notifier),
		analyzer.WithTimeouts(cfg.Fetch.DefaultTimeout, cfg.Fetch.MaxTimeout),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if svc.scraper != nil && m != nil {
		go reportPoolUsage(ctx, svc.scraper, m)
	}

	router := api.NewRouter(ctx, cfg, api.Deps{
		Auditor:   az,
		Pool:      svc.scraper,
		Metrics:   m,
		StartTime: time.Now(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight audits a moment to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("seoaudit stopped")
	return nil
}

// reportPoolUsage mirrors the browser's active tab count into metrics.
func reportPoolUsage(ctx context.Context, sc *scraper.Scraper, m *metrics.Metrics) {
	ticker := time.NewTicker(poolReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetActivePages(sc.Stats().ActivePages)
		}
	}
}
