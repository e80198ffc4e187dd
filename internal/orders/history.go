package orders

import (
	"context"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable/formula"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// GetOrdersForCustomer returns every order whose Customer field equals
// customer byte for byte. Item resolution failures fail the call; pool
// resolution failures only drop that order's pool details.
func (s *service) GetOrdersForCustomer(ctx context.Context, customer string) ([]OrderView, error) {
	if customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	}
	ctx = s.logg.WithCustomer(ctx, customer)

	expr, err := formula.Eq(FieldCustomer, customer).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer")
	}
	records, err := s.tables.Orders.List(ctx, airtable.ListParams{Formula: expr, View: s.opts.View})
	if err != nil {
		return nil, err
	}

	orders := make([]orderRecord, 0, len(records))
	for _, rec := range records {
		if rec.Fields.String(FieldCustomer) != customer {
			continue
		}
		order, err := orderFromRecord(rec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	views := make([]OrderView, len(orders))
	var g errgroup.Group
	g.SetLimit(s.opts.FanOutLimit)
	for i, order := range orders {
		i, order := i, order
		g.Go(func() error {
			view := order.view
			items, err := s.resolveItems(ctx, order.itemRefs)
			if err != nil {
				return err
			}
			view.Items = items
			view.Pool = s.poolFor(ctx, view)
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *service) poolFor(ctx context.Context, view OrderView) *pools.Pool {
	if view.Kind != enums.OrderTypePooled || view.PoolRef == nil {
		return nil
	}
	pool, err := s.pools.ResolvePool(ctx, *view.PoolRef)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"record_id": view.RecordID,
			"pool_ref":  *view.PoolRef,
			"error":     err.Error(),
		}), "orders.history.pool_resolve_failed")
		return nil
	}
	return pool
}
