package controllers

import (
	"net/http"

	"github.com/AlazarG19/Test-Bulk-Buddy/api/responses"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/catalog"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

// ListProducts returns the catalog. Store failures surface as an empty list.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.ListProducts(r.Context()))
	}
}
