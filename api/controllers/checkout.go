package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/treadline/treadline-backend/api/middleware"
	"github.com/treadline/treadline-backend/api/responses"
	"github.com/treadline/treadline-backend/api/validators"
	"github.com/treadline/treadline-backend/internal/address"
	"github.com/treadline/treadline-backend/internal/checkout"
	"github.com/treadline/treadline-backend/internal/orders"
	"github.com/treadline/treadline-backend/internal/payment"
	"github.com/treadline/treadline-backend/pkg/enums"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/types"
)

// CheckoutService is the slice of the checkout service the handlers need.
type CheckoutService interface {
	Enter(ctx context.Context, params checkout.EnterParams) (*checkout.State, error)
	Get(ctx context.Context, sessionID string) (*checkout.State, error)
	UpdateAddress(ctx context.Context, sessionID string, fields address.Fields) (*checkout.State, error)
	Advance(ctx context.Context, sessionID string) (*checkout.State, error)
	Retreat(ctx context.Context, sessionID string) (*checkout.State, error)
	RetryAuthorization(ctx context.Context, sessionID string) (*checkout.State, error)
	Confirm(ctx context.Context, sessionID string, method payment.MethodDetails) (*orders.Confirmation, error)
}

type checkoutEnterRequest struct {
	CartID     string `json:"cart_id" validate:"required"`
	GuestEmail string `json:"guest_email,omitempty" validate:"omitempty,email"`
	Currency   string `json:"currency,omitempty" validate:"omitempty,oneof=USD CAD"`
}

type confirmRequest struct {
	SourceID   string `json:"source_id" validate:"required"`
	BuyerEmail string `json:"buyer_email,omitempty" validate:"omitempty,email"`
}

type stepView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type checkoutStateView struct {
	SessionID          string           `json:"session_id"`
	CartID             string           `json:"cart_id"`
	Step               int              `json:"step"`
	StepName           string           `json:"step_name"`
	Steps              []stepView       `json:"steps"`
	Address            types.Address    `json:"address"`
	AddressComplete    bool             `json:"address_complete"`
	Items              []types.CartItem `json:"items"`
	Total              string           `json:"total"`
	Currency           string           `json:"currency"`
	PaymentsEnabled    bool             `json:"payments_enabled"`
	AuthorizationReady bool             `json:"authorization_ready"`
	AuthorizationToken string           `json:"authorization_token,omitempty"`
	Version            int64            `json:"version"`
}

func newCheckoutStateView(state *checkout.State) checkoutStateView {
	session := state.Session
	steps := []stepView{
		{Index: int(enums.StepAddress), Name: enums.StepAddress.String(), Title: enums.StepAddress.Title(), Done: session.Steps.AddressDone},
		{Index: int(enums.StepPayment), Name: enums.StepPayment.String(), Title: enums.StepPayment.Title(), Done: session.Steps.PaymentDone},
		{Index: int(enums.StepReview), Name: enums.StepReview.String(), Title: enums.StepReview.Title(), Done: false},
	}

	view := checkoutStateView{
		SessionID:          session.ID,
		CartID:             session.CartID,
		Step:               int(session.Steps.Current),
		StepName:           session.Steps.Current.String(),
		Steps:              steps,
		Address:            session.Address,
		AddressComplete:    session.Address.Complete(),
		Items:              state.Items,
		Total:              state.Total.StringFixed(2),
		Currency:           session.Currency.String(),
		PaymentsEnabled:    state.PaymentsEnabled,
		AuthorizationReady: state.AuthorizationReady,
		Version:            session.Version,
	}
	if state.AuthorizationReady && session.Authorization != nil {
		view.AuthorizationToken = session.Authorization.Token
	}
	return view
}

// CheckoutEnter opens a checkout session for a cart.
func CheckoutEnter(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutEnterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := checkout.EnterParams{
			CartID:    payload.CartID,
			AuthToken: middleware.AuthTokenFromContext(r.Context()),
		}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			params.UserID = &userID
		} else if payload.GuestEmail != "" {
			params.GuestEmail = &payload.GuestEmail
		}
		if payload.Currency != "" {
			params.Currency = enums.Currency(payload.Currency)
		}

		state, err := svc.Enter(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutStateView(state))
	}
}

// CheckoutState returns the current wizard state.
func CheckoutState(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutStateView(state))
	}
}

// CheckoutUpdateAddress applies address edits to the session.
func CheckoutUpdateAddress(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var fields address.Fields
		if err := validators.DecodeJSONBody(r, &fields); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.UpdateAddress(r.Context(), sessionID, fields)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutStateView(state))
	}
}

// CheckoutAdvance moves the wizard forward one step.
func CheckoutAdvance(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return stepTransition(svc.Advance, logg)
}

// CheckoutRetreat moves the wizard back one step.
func CheckoutRetreat(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return stepTransition(svc.Retreat, logg)
}

// CheckoutRetryPayment re-runs authorization issuance after a failure.
func CheckoutRetryPayment(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return stepTransition(svc.RetryAuthorization, logg)
}

func stepTransition(op func(context.Context, string) (*checkout.State, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := op(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutStateView(state))
	}
}

// CheckoutConfirm submits the payment and finalizes the order.
func CheckoutConfirm(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := svc.Confirm(r.Context(), sessionID, payment.MethodDetails{
			SourceID:   payload.SourceID,
			BuyerEmail: payload.BuyerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmation)
	}
}

func sessionIDFromRequest(r *http.Request) (string, error) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return sessionID, nil
}
