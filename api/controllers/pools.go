package controllers

import (
	"net/http"

	"github.com/AlazarG19/Test-Bulk-Buddy/api/responses"
	"github.com/AlazarG19/Test-Bulk-Buddy/api/validators"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

type createPoolRequest struct {
	CreatedBy string `json:"createdBy" validate:"required,max=120"`
}

// ListOpenPools returns pools currently accepting orders.
func ListOpenPools(svc pools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pool service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.ListOpenPools(r.Context()))
	}
}

// CreatePool opens a new pool for the requesting customer.
func CreatePool(svc pools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pool service unavailable"))
			return
		}

		var payload createPoolRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithCustomer(r.Context(), payload.CreatedBy)
		pool, err := svc.CreatePool(ctx, payload.CreatedBy)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pool)
	}
}
