package controllers

import (
	"net/http"

	"github.com/acctbay/storefront-backend/api/responses"
	statsvc "github.com/acctbay/storefront-backend/internal/stats"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

// SiteStats returns the public aggregate counters shown on the storefront.
func SiteStats(svc *statsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		responses.WriteSuccess(w, svc.Site(r.Context()))
	}
}
