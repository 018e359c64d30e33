package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// withURLParam seeds a chi route parameter so handlers can be exercised
// without a full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
