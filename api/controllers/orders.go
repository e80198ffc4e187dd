package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/AlazarG19/Test-Bulk-Buddy/api/responses"
	"github.com/AlazarG19/Test-Bulk-Buddy/api/validators"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/orders"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

const maxCustomerQueryLen = 120

type createOrderRequest struct {
	Customer     string            `json:"customer" validate:"required"`
	Kind         string            `json:"kind" validate:"required"`
	PoolRef      string            `json:"poolRef"`
	DeliveryDate string            `json:"deliveryDate"`
	Lines        []cartLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type cartLineRequest struct {
	ProductRef string          `json:"productRef" validate:"required"`
	Quantity   int             `json:"quantity" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

func (r createOrderRequest) toInput() (orders.CreateOrderInput, error) {
	kind, err := enums.ParseOrderType(r.Kind)
	if err != nil {
		return orders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order").
			WithDetails(map[string]string{"kind": "must be single or pool"})
	}
	lines := make([]orders.CartLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, orders.CartLine{
			ProductRef: validators.SanitizeString(line.ProductRef, 0),
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
		})
	}
	return orders.CreateOrderInput{
		Customer:     r.Customer,
		Kind:         kind,
		PoolRef:      validators.SanitizeString(r.PoolRef, 0),
		DeliveryDate: validators.SanitizeString(r.DeliveryDate, 0),
		Lines:        lines,
	}, nil
}

// CreateOrder writes an order with its items and returns the committed reference.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithCustomer(r.Context(), input.Customer)
		ref, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ref)
	}
}

// GetOrdersForCustomer lists the orders placed under ?customer=.
func GetOrdersForCustomer(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		customer, err := validators.RequiredQuery(r, "customer", maxCustomerQueryLen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithCustomer(r.Context(), customer)
		views, err := svc.GetOrdersForCustomer(ctx, customer)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// ResolveOrderItems returns the denormalized lines of one order.
func ResolveOrderItems(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderRef := validators.SanitizeString(chi.URLParam(r, "orderRef"), 0)
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderRef is required"))
			return
		}

		ctx := logg.WithField(r.Context(), "order_ref", orderRef)
		items, err := svc.ResolveOrderItems(ctx, orderRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
