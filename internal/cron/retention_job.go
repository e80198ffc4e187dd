package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/journal"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/metrics"
)

const (
	retentionJobName        = "order-journal-retention"
	defaultJournalRetention = 30 * 24 * time.Hour
)

type RetentionJobParams struct {
	Logger    *logger.Logger
	Journal   journal.Repository
	Metrics   *metrics.JobMetrics
	Retention time.Duration
}

func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultJournalRetention
	}
	return &retentionJob{
		logg:      params.Logger,
		journal:   params.Journal,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type retentionJob struct {
	logg      *logger.Logger
	journal   journal.Repository
	metrics   *metrics.JobMetrics
	retention time.Duration
	now       func() time.Time
}

func (j *retentionJob) Name() string { return retentionJobName }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.journal.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("journal retention: %w", err)
	}
	j.metrics.AddEntries(retentionJobName, "deleted", int(deleted))
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "cron.retention_complete")
	return nil
}
