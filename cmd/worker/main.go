package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/bootstrap"
	"github.com/kirillkom/irrrl-engine/internal/config"
	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/observability/logging"
	"github.com/kirillkom/irrrl-engine/internal/observability/metrics"
)

const serviceName = "irrrl-worker"

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithRecorder(workerMetrics), bootstrap.WithName(serviceName))
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Subscriber == nil {
		slog.Error("worker_requires_nats", "reason", "NATS_URL not set")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	err = app.Subscriber.SubscribeSubmitted(ctx, func(handlerCtx context.Context, event domain.Event) error {
		if !event.OccurredAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(event.OccurredAt))
		}
		analysisCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerAnalysisTimeout)
		defer cancel()

		workerMetrics.StartAnalysis()
		start := time.Now()
		err := app.Analysis.AnalyzeSubmitted(analysisCtx, event.ApplicationID)
		workerMetrics.FinishAnalysis(serviceName, time.Since(start), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
