package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/treadline/treadline-backend/api/responses"
	"github.com/treadline/treadline-backend/api/validators"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/types"
)

// CartStore is the slice of the cart store the handlers need.
type CartStore interface {
	Load(ctx context.Context, cartID string) []types.CartItem
	Save(ctx context.Context, cartID string, items []types.CartItem) error
	Clear(ctx context.Context, cartID string) error
}

type cartSaveRequest struct {
	Items []types.CartItem `json:"items" validate:"required,dive"`
}

type cartView struct {
	CartID string           `json:"cart_id"`
	Items  []types.CartItem `json:"items"`
	Total  string           `json:"total"`
}

func newCartView(cartID string, items []types.CartItem) cartView {
	return cartView{
		CartID: cartID,
		Items:  items,
		Total:  types.CartTotal(items).StringFixed(2),
	}
}

// CartFetch returns the current cart snapshot.
func CartFetch(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(cartID, store.Load(r.Context(), cartID)))
	}
}

// CartUpsert replaces the cart snapshot. Last writer wins; other open views
// converge via the change notification.
func CartUpsert(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartSaveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for _, item := range payload.Items {
			if !item.Valid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "cart line has invalid quantity or price").
						WithDetails(map[string]any{"line": item.Key()}))
				return
			}
		}

		if err := store.Save(r.Context(), cartID, payload.Items); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart"))
			return
		}
		responses.WriteSuccess(w, newCartView(cartID, payload.Items))
	}
}

// CartClear empties the cart.
func CartClear(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.Clear(r.Context(), cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart"))
			return
		}
		responses.WriteSuccess(w, newCartView(cartID, []types.CartItem{}))
	}
}

func cartIDFromRequest(r *http.Request) (string, error) {
	cartID := strings.TrimSpace(chi.URLParam(r, "cartId"))
	if cartID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	return cartID, nil
}
