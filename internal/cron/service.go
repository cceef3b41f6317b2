package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
)

const (
	defaultTick       = 30 * time.Second
	defaultJobTimeout = 10 * time.Minute
)

// ErrLockHeld reports that another worker is already running the job.
var ErrLockHeld = errors.New("job is already running")

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Locker     Locker
	Metrics    *metrics.CronJobMetrics
	Tick       time.Duration
	JobTimeout time.Duration
	Now        func() time.Time
}

// Service fires registered jobs when their schedules come due.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	timeout := params.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locker:   params.Locker,
		metrics:  params.Metrics,
		tick:     tick,
		timeout:  timeout,
		now:      now,
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	next := s.plan(s.now().UTC())
	for _, job := range s.registry.Jobs() {
		jobCtx := s.logg.WithFields(ctx, map[string]any{
			"job":      job.Name(),
			"schedule": job.Schedule().String(),
			"next_run": next[job.Name()],
		})
		s.logg.Info(jobCtx, "job scheduled")
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx, next, s.now().UTC())
		}
	}
}

// plan computes the first fire time of every job after now.
func (s *Service) plan(now time.Time) map[string]time.Time {
	next := make(map[string]time.Time)
	for _, job := range s.registry.Jobs() {
		next[job.Name()] = job.Schedule().Next(now)
	}
	return next
}

// runDue runs each job whose fire time has passed and advances its schedule.
// A job that missed several slots while the worker was down runs once.
func (s *Service) runDue(ctx context.Context, next map[string]time.Time, now time.Time) {
	for _, job := range s.registry.Jobs() {
		due, ok := next[job.Name()]
		if !ok {
			due = job.Schedule().Next(now)
			next[job.Name()] = due
			continue
		}
		if now.Before(due) {
			continue
		}
		next[job.Name()] = job.Schedule().Next(now)
		if err := s.runJob(ctx, job, due); err != nil && !errors.Is(err, ErrLockHeld) {
			s.logg.Error(s.logg.WithField(ctx, "job", job.Name()), "scheduled run failed", err)
		}
	}
}

// Trigger runs a job on demand. A non-zero at overrides the job's notion of now.
func (s *Service) Trigger(ctx context.Context, name string, at time.Time) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "job not found").WithDetails(map[string]any{"job": name})
	}
	if at.IsZero() {
		at = s.now().UTC()
	}
	err := s.runJob(ctx, job, at)
	if errors.Is(err, ErrLockHeld) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "job is already running")
	}
	return err
}

// Jobs lists the registered jobs.
func (s *Service) Jobs() []Job {
	return s.registry.Jobs()
}

func (s *Service) runJob(ctx context.Context, job Job, at time.Time) error {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	jobCtx = s.logg.WithField(jobCtx, "reference_time", at)

	lock, err := s.locker.For(job.Name())
	if err != nil {
		return fmt.Errorf("lock for %s: %w", job.Name(), err)
	}
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.metrics.ObserveRun(job.Name(), metrics.JobFailed, 0, s.now())
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(jobCtx, "another cron worker holds the job lock; skipping")
		s.metrics.ObserveRun(job.Name(), metrics.JobSkipped, 0, s.now())
		return ErrLockHeld
	}
	defer func() {
		switch relErr := lock.Release(context.WithoutCancel(jobCtx)); {
		case errors.Is(relErr, ErrLockLost):
			s.logg.Warn(jobCtx, "job outlived its lock ttl")
		case relErr != nil:
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()

	runCtx, cancel := context.WithTimeout(WithReferenceTime(jobCtx, at), s.timeout)
	defer cancel()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(runCtx)
	duration := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.ObserveRun(job.Name(), metrics.JobFailed, duration, s.now())
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.ObserveRun(job.Name(), metrics.JobSucceeded, duration, s.now())
	return nil
}
