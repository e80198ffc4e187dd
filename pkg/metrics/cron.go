package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bulkbuddy"

// JobMetrics tracks scheduled journal jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	handled  *prometheus.CounterVec
}

// NewJobMetrics registers job metrics on reg. A nil registerer yields a no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of scheduled jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by outcome.",
	}, []string{"job", "outcome"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_entries_total",
		Help:      "Journal entries touched by scheduled jobs, by resulting state.",
	}, []string{"job", "state"})
	reg.MustRegister(duration, runs, handled)
	return &JobMetrics{
		duration: duration,
		runs:     runs,
		handled:  handled,
	}
}

// ObserveRun records one execution of job.
func (m *JobMetrics) ObserveRun(job string, d time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(d.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.runs.WithLabelValues(job, outcome).Inc()
}

// AddEntries counts journal entries a job moved into state.
func (m *JobMetrics) AddEntries(job, state string, n int) {
	if m == nil || m.handled == nil || n <= 0 {
		return
	}
	m.handled.WithLabelValues(normalizeLabel(job), normalizeLabel(state)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
