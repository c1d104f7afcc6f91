package controllers

import (
	"net/http"

	"github.com/treadline/treadline-backend/api/middleware"
	"github.com/treadline/treadline-backend/api/responses"
	"github.com/treadline/treadline-backend/internal/address"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
)

// AccountDefaultAddress proxies the shopper's saved default shipping address
// from the account service. Requires an authenticated request.
func AccountDefaultAddress(fetcher address.DefaultAddressFetcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fetcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "account service unavailable"))
			return
		}

		token := middleware.AuthTokenFromContext(r.Context())
		saved, err := fetcher.DefaultShippingAddress(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if saved == nil {
			responses.WriteSuccessStatus(w, http.StatusOK, nil)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}
