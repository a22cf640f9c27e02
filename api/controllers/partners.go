package controllers

import (
	"net/http"

	"github.com/sabzico/fulfillment-backend/api/responses"
	"github.com/sabzico/fulfillment-backend/internal/partners"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
)

// AdminListPartners returns the active delivery partner roster used when
// assigning deliveries and return pickups.
func AdminListPartners(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		active, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partners"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"partners": active})
	}
}
