package journal

import (
	"context"
	"errors"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/db"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderIDIndex = "idx_order_journal_order_id"

// ErrDuplicateOrderID is returned by Begin when the human order id is already journaled.
var ErrDuplicateOrderID = errors.New("order id already journaled")

// Repository persists journal entries.
type Repository interface {
	Begin(ctx context.Context, entry *Entry) error
	MarkOrderCreated(ctx context.Context, id uuid.UUID, orderRecordID string) error
	MarkItemsCreated(ctx context.Context, id uuid.UUID, itemRecordIDs []string) error
	MarkCommitted(ctx context.Context, id uuid.UUID) error
	MarkAbandoned(ctx context.Context, id uuid.UUID, reason string) error
	RecordFailure(ctx context.Context, id uuid.UUID, cause error) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Entry, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds a journal repository bound to conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) Begin(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "journal entry required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := r.now()
	entry.State = enums.JournalStatePending
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.ItemRecordIDs == nil {
		entry.ItemRecordIDs = StringList{}
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err, orderIDIndex) || db.IsUniqueViolation(err, "order_journal.order_id") {
			return ErrDuplicateOrderID
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert journal entry")
	}
	return nil
}

func (r *repository) MarkOrderCreated(ctx context.Context, id uuid.UUID, orderRecordID string) error {
	return r.transition(ctx, id, enums.JournalStateOrderCreated, map[string]any{
		"order_record_id": orderRecordID,
	})
}

func (r *repository) MarkItemsCreated(ctx context.Context, id uuid.UUID, itemRecordIDs []string) error {
	return r.transition(ctx, id, enums.JournalStateItemsCreated, map[string]any{
		"item_record_ids": StringList(itemRecordIDs),
	})
}

func (r *repository) MarkCommitted(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, enums.JournalStateCommitted, map[string]any{
		"last_error": nil,
	})
}

func (r *repository) MarkAbandoned(ctx context.Context, id uuid.UUID, reason string) error {
	return r.transition(ctx, id, enums.JournalStateAbandoned, map[string]any{
		"last_error": reason,
	})
}

// RecordFailure stores the latest error without changing state.
func (r *repository) RecordFailure(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	res := r.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", id).Updates(map[string]any{
		"last_error": msg,
		"attempts":   gorm.Expr("attempts + 1"),
		"updated_at": r.now(),
	})
	return r.checkUpdate(res, id)
}

func (r *repository) transition(ctx context.Context, id uuid.UUID, state enums.JournalState, fields map[string]any) error {
	fields["state"] = state.String()
	fields["updated_at"] = r.now()
	res := r.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", id).Updates(fields)
	return r.checkUpdate(res, id)
}

func (r *repository) checkUpdate(res *gorm.DB, id uuid.UUID) error {
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update journal entry")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "journal entry not found").WithDetails(map[string]any{"id": id.String()})
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var entry Entry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "journal entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load journal entry")
	}
	return &entry, nil
}

// ListStale returns non-terminal entries not touched since cutoff, oldest first.
func (r *repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Entry, error) {
	query := r.db.WithContext(ctx).
		Where("state IN ?", []string{
			enums.JournalStatePending.String(),
			enums.JournalStateOrderCreated.String(),
			enums.JournalStateItemsCreated.String(),
		}).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []Entry
	if err := query.Find(&entries).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale journal entries")
	}
	return entries, nil
}

// DeleteFinishedBefore removes committed and abandoned entries last updated before cutoff.
func (r *repository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("state IN ?", []string{enums.JournalStateCommitted.String(), enums.JournalStateAbandoned.String()}).
		Where("updated_at < ?", cutoff).
		Delete(&Entry{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete finished journal entries")
	}
	return res.RowsAffected, nil
}
