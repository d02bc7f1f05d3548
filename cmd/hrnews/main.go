package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deusflow/hrnews/internal/app"
	"github.com/deusflow/hrnews/internal/config"
	"github.com/deusflow/hrnews/internal/logger"
	"github.com/deusflow/hrnews/internal/metrics"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle even when -interval is set")
	interval := flag.Duration("interval", 0, "repeat the cycle at this interval (0 runs once)")
	dryRun := flag.Bool("dry-run", false, "print the selection without posting or recording anything")
	flag.Parse()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableHTTPMonitoring {
		go startMonitoringServer(ctx, cfg.MonitoringPort)
	}

	opts := app.Options{DryRun: *dryRun}

	if *once || *interval <= 0 {
		if err := runOnce(ctx, cfg, opts); err != nil {
			os.Exit(1)
		}
		return
	}

	logger.Info("starting continuous mode", "interval", interval.String())
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		_ = runOnce(ctx, cfg, opts)
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, cfg *config.Config, opts app.Options) error {
	report, err := app.Run(ctx, cfg, opts)
	if err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	logger.Info("run complete",
		"fetched", report.Fetched,
		"selected", len(report.Selected),
		"posted", report.Posted,
		"post_failed", report.PostFailed,
		"feed_errors", report.FeedErrors)
	return nil
}

func newMonitoringRouter(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(m))
	r.Get("/stats", statsHandler(m))
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

func startMonitoringServer(ctx context.Context, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMonitoringRouter(metrics.Global),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting monitoring server", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if healthy, _ := stats["is_healthy"].(bool); !healthy {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func statsHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.GetStats())
	}
}
