package cron

import (
	"context"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Schedule() Schedule
	Run(ctx context.Context) error
}

// Registry tracks registered cron jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry. A job whose name is already taken
// replaces the earlier one.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	for i, existing := range r.jobs {
		if existing.Name() == job.Name() {
			r.jobs[i] = job
			return
		}
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

type referenceTimeKey struct{}

// WithReferenceTime overrides the "now" a job computes its window from.
func WithReferenceTime(ctx context.Context, at time.Time) context.Context {
	return context.WithValue(ctx, referenceTimeKey{}, at.UTC())
}

func referenceTime(ctx context.Context, now func() time.Time) time.Time {
	if at, ok := ctx.Value(referenceTimeKey{}).(time.Time); ok && !at.IsZero() {
		return at
	}
	return now().UTC()
}
