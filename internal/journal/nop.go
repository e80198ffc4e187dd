package journal

import (
	"context"
	"time"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/google/uuid"
)

// Nop satisfies Repository when the journal feature flag is off.
type Nop struct{}

func (Nop) Begin(context.Context, *Entry) error { return nil }
func (Nop) MarkOrderCreated(context.Context, uuid.UUID, string) error { return nil }
func (Nop) MarkItemsCreated(context.Context, uuid.UUID, []string) error { return nil }
func (Nop) MarkCommitted(context.Context, uuid.UUID) error { return nil }
func (Nop) MarkAbandoned(context.Context, uuid.UUID, string) error { return nil }
func (Nop) RecordFailure(context.Context, uuid.UUID, error) error { return nil }
func (Nop) ListStale(context.Context, time.Time, int) ([]Entry, error) { return nil, nil }
func (Nop) DeleteFinishedBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (Nop) Get(context.Context, uuid.UUID) (*Entry, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "journal disabled")
}
