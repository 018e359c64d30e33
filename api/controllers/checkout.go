package controllers

import (
	"net/http"

	"github.com/acctbay/storefront-backend/api/responses"
	"github.com/acctbay/storefront-backend/api/validators"
	checkoutsvc "github.com/acctbay/storefront-backend/internal/checkout"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

// Checkout hands the caller's cart to the payment gateway and returns the
// hosted checkout URL.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sess, err := requireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CheckoutBuyNow opens the hosted checkout for a single item, skipping the
// cart entirely.
func CheckoutBuyNow(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sess, err := requireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutsvc.BuyNowRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BuyNow(r.Context(), sess, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
