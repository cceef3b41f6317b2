package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRunByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "commission-daily-accrual"
	finished := time.Date(2026, 4, 2, 0, 15, 3, 0, time.UTC)

	m.ObserveRun(job, JobSucceeded, 250*time.Millisecond, finished)
	m.ObserveRun(job, JobFailed, time.Second, finished.Add(time.Hour))
	m.ObserveRun(job, JobSkipped, 0, finished.Add(2*time.Hour))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	runs := findMetricFamily(mfs, "datavend_cron_runs_total")
	require.NotNil(t, runs)
	for _, outcome := range []JobOutcome{JobSucceeded, JobFailed, JobSkipped} {
		metric := seriesFor(runs, "outcome", string(outcome))
		require.NotNil(t, metric, outcome)
		assert.Equal(t, 1.0, metric.GetCounter().GetValue(), outcome)
	}

	duration := findMetricFamily(mfs, "datavend_cron_run_duration_seconds")
	require.NotNil(t, duration)
	hist := seriesFor(duration, "job", job).GetHistogram()
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 1.25, hist.GetSampleSum(), 1e-9)

	last := findMetricFamily(mfs, "datavend_cron_last_success_timestamp_seconds")
	require.NotNil(t, last)
	assert.Equal(t, float64(finished.Unix()), seriesFor(last, "job", job).GetGauge().GetValue())
}

func TestObserveRunLabelsEmptyJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).ObserveRun("", JobSkipped, 0, time.Now())

	mfs, err := reg.Gather()
	require.NoError(t, err)
	runs := findMetricFamily(mfs, "datavend_cron_runs_total")
	require.NotNil(t, runs)
	assert.NotNil(t, seriesFor(runs, "job", "unknown"))
}

func TestNilCronJobMetricsIsSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", JobSucceeded, time.Second, time.Now())
	NewCronJobMetrics(nil).ObserveRun("job", JobFailed, time.Second, time.Now())
}

func seriesFor(mf *dto.MetricFamily, label, value string) *dto.Metric {
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric
		}
	}
	return nil
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
