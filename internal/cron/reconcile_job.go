package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/journal"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	reconcileJobName      = "order-journal-reconcile"
	defaultReconcileGrace = 10 * time.Minute
	defaultReconcileBatch = 100
)

type itemAttacher interface {
	AttachItems(ctx context.Context, orderRef string, itemRefs []string) error
}

// ReconcileJobParams configure the journal reconciler.
type ReconcileJobParams struct {
	Logger  *logger.Logger
	Journal journal.Repository
	Orders  itemAttacher
	Metrics *metrics.JobMetrics
	Grace   time.Duration
	Batch   int
}

// NewReconcileJob builds the job that settles order commits left unfinished
// by a crashed or failed request. Entries whose items all exist are resumed;
// earlier states are abandoned and logged for an operator.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &reconcileJob{
		logg:    params.Logger,
		journal: params.Journal,
		orders:  params.Orders,
		metrics: params.Metrics,
		grace:   grace,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type reconcileJob struct {
	logg    *logger.Logger
	journal journal.Repository
	orders  itemAttacher
	metrics *metrics.JobMetrics
	grace   time.Duration
	batch   int
	now     func() time.Time
}

func (j *reconcileJob) Name() string { return reconcileJobName }

func (j *reconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	entries, err := j.journal.ListStale(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale journal entries: %w", err)
	}

	var (
		errs      error
		committed int
		abandoned int
	)
	for _, entry := range entries {
		entryCtx := j.logg.WithFields(ctx, map[string]any{
			"journal_id": entry.ID.String(),
			"order_id":   entry.OrderID,
			"state":      entry.State.String(),
		})
		switch entry.State {
		case enums.JournalStateItemsCreated:
			if err := j.resume(entryCtx, entry); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			committed++
		default:
			if err := j.abandon(entryCtx, entry); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			abandoned++
		}
	}

	j.metrics.AddEntries(reconcileJobName, enums.JournalStateCommitted.String(), committed)
	j.metrics.AddEntries(reconcileJobName, enums.JournalStateAbandoned.String(), abandoned)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned":   len(entries),
		"committed": committed,
		"abandoned": abandoned,
		"failed":    len(multierr.Errors(errs)),
	}), "cron.reconcile_complete")
	return errs
}

func (j *reconcileJob) resume(ctx context.Context, entry journal.Entry) error {
	if entry.OrderRecordID == nil || *entry.OrderRecordID == "" {
		return j.abandon(ctx, entry)
	}
	if err := j.orders.AttachItems(ctx, *entry.OrderRecordID, entry.ItemRecordIDs); err != nil {
		if recErr := j.journal.RecordFailure(ctx, entry.ID, err); recErr != nil {
			err = multierr.Append(err, recErr)
		}
		return fmt.Errorf("resume order %s: %w", entry.OrderID, err)
	}
	if err := j.journal.MarkCommitted(ctx, entry.ID); err != nil {
		return fmt.Errorf("commit order %s: %w", entry.OrderID, err)
	}
	j.logg.Info(ctx, "cron.reconcile_resumed")
	return nil
}

func (j *reconcileJob) abandon(ctx context.Context, entry journal.Entry) error {
	reason := fmt.Sprintf("abandoned by reconciler in state %s", entry.State)
	if err := j.journal.MarkAbandoned(ctx, entry.ID, reason); err != nil {
		return fmt.Errorf("abandon order %s: %w", entry.OrderID, err)
	}
	fields := map[string]any{"items_created": len(entry.ItemRecordIDs)}
	if entry.OrderRecordID != nil {
		fields["order_record_id"] = *entry.OrderRecordID
	}
	j.logg.Warn(j.logg.WithFields(ctx, fields), "cron.reconcile_abandoned")
	return nil
}
