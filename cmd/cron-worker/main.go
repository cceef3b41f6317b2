package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/datavend-backend/internal/app"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

func main() {
	boot := context.Background()
	rt, err := app.Boot(boot, "cron-worker")
	if err != nil {
		logger.New(logger.Options{ServiceName: "cron-worker"}).Error(boot, "bootstrap failed", err)
		os.Exit(1)
	}
	logg := rt.Logger

	redisClient, err := rt.Redis(boot)
	if err != nil {
		rt.Exit(boot, "redis unavailable", err)
	}
	domain, _, err := rt.Domain(boot, prometheus.DefaultRegisterer)
	if err != nil {
		rt.Exit(boot, "failed to wire domain services", err)
	}
	service, err := rt.JobRunner(domain, redisClient, prometheus.DefaultRegisterer)
	if err != nil {
		rt.Exit(boot, "failed to create cron service", err)
	}

	ctx, stop := rt.SignalContext(nil)
	defer stop()

	metricsServer := &http.Server{
		Addr:              rt.Config.Cron.MetricsAddress,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	rt.OnClose("metrics server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Exit(ctx, "cron worker stopped unexpectedly", err)
	}
	rt.Shutdown(ctx)
	logg.Info(ctx, "cron worker shut down")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
