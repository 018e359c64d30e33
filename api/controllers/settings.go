package controllers

import (
	"net/http"

	"github.com/acctbay/storefront-backend/api/responses"
	settingsvc "github.com/acctbay/storefront-backend/internal/settings"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

// SettingsAll returns the merged site settings. Missing keys fall back to
// built-in defaults, so this endpoint never errors on storage trouble.
func SettingsAll(svc settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		responses.WriteSuccess(w, svc.All(r.Context()))
	}
}
