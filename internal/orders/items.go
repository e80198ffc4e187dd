package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CreateOrderItems creates one OrderItem per cart line bound to orderRef.
// Creates run concurrently and all of them settle before the first error is
// returned. Items created before a failure are left in place. The returned
// refs follow cart-line order.
func (s *service) CreateOrderItems(ctx context.Context, orderRef string, lines []CartLine) ([]string, error) {
	if strings.TrimSpace(orderRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}

	refs := make([]string, len(lines))
	var g errgroup.Group
	g.SetLimit(s.opts.FanOutLimit)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			rec, err := s.tables.Items.Create(ctx, airtable.Fields{
				FieldItemOrder:    []string{orderRef},
				FieldItemProducts: []string{line.ProductRef},
				FieldItemQuantity: line.Quantity,
			})
			if err != nil {
				return asDependency(err, fmt.Sprintf("create order item %d", i))
			}
			refs[i] = rec.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// ResolveOrderItems loads an order's stored item refs and denormalizes each
// into product name, quantity and unit price. Any failed lookup fails the call.
func (s *service) ResolveOrderItems(ctx context.Context, orderRef string) ([]ItemView, error) {
	if strings.TrimSpace(orderRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	rec, err := s.tables.Orders.Get(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	return s.resolveItems(ctx, rec.Fields.StringSlice(FieldOrderItems))
}

func (s *service) resolveItems(ctx context.Context, itemRefs []string) ([]ItemView, error) {
	views := make([]ItemView, len(itemRefs))
	var g errgroup.Group
	g.SetLimit(s.opts.FanOutLimit)
	for i, ref := range itemRefs {
		i, ref := i, ref
		g.Go(func() error {
			view, err := s.resolveItem(ctx, ref)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *service) resolveItem(ctx context.Context, itemRef string) (ItemView, error) {
	item, err := s.tables.Items.Get(ctx, itemRef)
	if err != nil {
		return ItemView{}, err
	}
	productRef := item.Fields.FirstString(FieldItemProducts)
	if productRef == "" {
		return ItemView{}, pkgerrors.New(pkgerrors.CodeDependency, "order item has no product").
			WithDetails(map[string]any{"itemRef": itemRef})
	}
	qty, _, err := item.Fields.Int(FieldItemQuantity)
	if err != nil {
		return ItemView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unreadable item quantity")
	}

	product, err := s.tables.Products.Get(ctx, productRef)
	if err != nil {
		return ItemView{}, err
	}
	price, _, err := product.Fields.Decimal(FieldProductPrice)
	if err != nil {
		return ItemView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unreadable product price")
	}

	return ItemView{
		ItemRef:     itemRef,
		ProductRef:  productRef,
		ProductName: product.Fields.String(FieldProductName),
		Quantity:    qty,
		UnitPrice:   price,
	}, nil
}
