package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/datavend-backend/internal/cron"
	"github.com/angelmondragon/datavend-backend/pkg/bigquery"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/instance"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
	"github.com/angelmondragon/datavend-backend/pkg/migrate"
	"github.com/angelmondragon/datavend-backend/pkg/pubsub"
	"github.com/angelmondragon/datavend-backend/pkg/redis"
)

// Runtime is the config, logger and database every binary starts from,
// plus the clients it opened since. Close releases them newest first.
type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Boot loads .env and config, connects to the database and applies the
// embedded migrations in dev.
func Boot(ctx context.Context, kind string) (*Runtime, error) {
	if err := godotenv.Load(); err != nil {
		logger.New(logger.Options{ServiceName: kind}).Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Service.Kind = kind

	rt := &Runtime{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
	}
	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), rt.Close())
	}
	return rt, nil
}

// OnClose registers fn to run when the runtime closes.
func (r *Runtime) OnClose(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

// Close runs every registered closer in reverse order and joins the errors.
func (r *Runtime) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	r.closers = nil
	return errs
}

// Exit logs err, releases resources and terminates the process.
func (r *Runtime) Exit(ctx context.Context, msg string, err error) {
	r.Logger.Error(ctx, msg, err)
	if closeErr := r.Close(); closeErr != nil {
		r.Logger.Error(ctx, "shutdown", closeErr)
	}
	os.Exit(1)
}

// Shutdown closes resources and logs anything that failed to close.
func (r *Runtime) Shutdown(ctx context.Context) {
	if err := r.Close(); err != nil {
		r.Logger.Error(ctx, "shutdown", err)
	}
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the process
// fields every log line should have.
func (r *Runtime) SignalContext(fields map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	base := map[string]any{
		"env":         r.Config.App.Env,
		"serviceKind": r.Kind,
		"instance":    instance.GetID(),
	}
	for k, v := range fields {
		base[k] = v
	}
	return r.Logger.WithFields(ctx, base), stop
}

func (r *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	r.OnClose("redis", client.Close)
	return client, nil
}

func (r *Runtime) PubSub(ctx context.Context, role pubsub.Role) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, r.Config.GCP, r.Config.PubSub, role, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	r.OnClose("pubsub", client.Close)
	return client, nil
}

// Domain wires the domain services. The BigQuery client is nil unless
// summary export is configured.
func (r *Runtime) Domain(ctx context.Context, reg prometheus.Registerer) (*Domain, *bigquery.Client, error) {
	params := DomainParams{Config: r.Config, Logger: r.Logger, DB: r.DB, Registry: reg}
	var bq *bigquery.Client
	if r.Config.BigQuery.Enabled() {
		client, err := bigquery.NewClient(ctx, r.Config.GCP, r.Config.BigQuery, r.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("bigquery: %w", err)
		}
		r.OnClose("bigquery", client.Close)
		params.Exporter = client
		bq = client
	}
	domain, err := NewDomain(params)
	if err != nil {
		return nil, nil, err
	}
	return domain, bq, nil
}

// JobRunner builds the cron service over every registered job, locked
// through Redis so only one process runs a job at a time.
func (r *Runtime) JobRunner(domain *Domain, store cron.LockStore, reg prometheus.Registerer) (*cron.Service, error) {
	jobs, err := NewJobRegistry(r.Config, r.Logger, r.DB, domain)
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	locker, err := cron.NewRedisLocker(store, r.Config.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("job locker: %w", err)
	}
	return cron.NewService(cron.ServiceParams{
		Logger:     r.Logger,
		Registry:   jobs,
		Locker:     locker,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Tick:       r.Config.Cron.TickInterval,
		JobTimeout: r.Config.Cron.JobTimeout,
	})
}
