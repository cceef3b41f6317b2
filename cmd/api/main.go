package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/datavend-backend/api/controllers"
	"github.com/angelmondragon/datavend-backend/api/routes"
	"github.com/angelmondragon/datavend-backend/internal/app"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
)

const shutdownGrace = 15 * time.Second

func main() {
	boot := context.Background()
	rt, err := app.Boot(boot, "api")
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(boot, "bootstrap failed", err)
		os.Exit(1)
	}
	cfg, logg := rt.Config, rt.Logger

	redisClient, err := rt.Redis(boot)
	if err != nil {
		rt.Exit(boot, "redis unavailable", err)
	}
	domain, bq, err := rt.Domain(boot, prometheus.DefaultRegisterer)
	if err != nil {
		rt.Exit(boot, "failed to wire domain services", err)
	}
	// The API shares the job registry so admins can trigger runs by name.
	jobRunner, err := rt.JobRunner(domain, redisClient, prometheus.DefaultRegisterer)
	if err != nil {
		rt.Exit(boot, "failed to create job runner", err)
	}

	readiness := controllers.ReadinessDeps{DB: rt.DB, Redis: redisClient}
	if bq != nil {
		readiness.BigQuery = bq
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := rt.SignalContext(map[string]any{"addr": addr})
	defer stop()

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Readiness:     readiness,
			Redis:         redisClient,
			Wallet:        domain.Wallet,
			Orders:        domain.Orders,
			Commissions:   domain.Commissions,
			Notifications: domain.Notifications,
			Jobs:          jobRunner,
			DeadLetters:   outbox.NewDLQRepository(rt.DB.DB()),
			HTTP:          metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			Metrics:       promhttp.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		rt.Exit(ctx, "api server stopped unexpectedly", err)
	}
	rt.Shutdown(ctx)
	logg.Info(ctx, "api server shut down")
}
