// Package metrics holds the Prometheus collectors shared by the API, the
// cron worker and the wallet ledger. Every type is safe to use as a nil
// pointer so callers never branch on whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "datavend"

// JobOutcome labels how a cron run ended.
type JobOutcome string

const (
	JobSucceeded JobOutcome = "success"
	JobFailed    JobOutcome = "failure"
	// JobSkipped means another worker held the job lock.
	JobSkipped JobOutcome = "skipped"
)

// CronJobMetrics tracks runs of scheduled jobs.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "run_duration_seconds",
			Help:      "Wall time of cron job runs that acquired the lock.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the job last finished without error.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// ObserveRun records one run. Skipped runs carry no duration.
func (c *CronJobMetrics) ObserveRun(job string, outcome JobOutcome, took time.Duration, finished time.Time) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, string(outcome)).Inc()
	if outcome == JobSkipped {
		return
	}
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == JobSucceeded {
		c.lastSuccess.WithLabelValues(job).Set(float64(finished.Unix()))
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
