package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treadline/treadline-backend/internal/address"
	"github.com/treadline/treadline-backend/internal/checkout"
	"github.com/treadline/treadline-backend/internal/orders"
	"github.com/treadline/treadline-backend/internal/payment"
	"github.com/treadline/treadline-backend/pkg/enums"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/types"
)

type stubCheckout struct {
	state        *checkout.State
	confirmation *orders.Confirmation
	err          error
	lastEnter    checkout.EnterParams
	lastFields   address.Fields
	lastMethod   payment.MethodDetails
}

func (s *stubCheckout) Enter(_ context.Context, params checkout.EnterParams) (*checkout.State, error) {
	s.lastEnter = params
	return s.state, s.err
}

func (s *stubCheckout) Get(context.Context, string) (*checkout.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) UpdateAddress(_ context.Context, _ string, fields address.Fields) (*checkout.State, error) {
	s.lastFields = fields
	return s.state, s.err
}

func (s *stubCheckout) Advance(context.Context, string) (*checkout.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) Retreat(context.Context, string) (*checkout.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) RetryAuthorization(context.Context, string) (*checkout.State, error) {
	return s.state, s.err
}

func (s *stubCheckout) Confirm(_ context.Context, _ string, method payment.MethodDetails) (*orders.Confirmation, error) {
	s.lastMethod = method
	if s.err != nil {
		return nil, s.err
	}
	return s.confirmation, nil
}

func sampleState() *checkout.State {
	items := []types.CartItem{
		{ID: 101, Name: "All-Season Touring", Brand: "Roadgrip", Size: "225/45R17", UnitPrice: decimal.NewFromFloat(89.99), Quantity: 2},
	}
	return &checkout.State{
		Session: &checkout.Session{
			ID:       "sess-1",
			CartID:   "cart-1",
			Currency: enums.CurrencyUSD,
			Steps:    checkout.Steps{Current: enums.StepPayment, AddressDone: true},
			Authorization: &payment.Authorization{
				Token:  "tlpa_abc",
				Status: enums.PaymentStatusPending,
			},
			Version: 2,
		},
		Items:              items,
		Total:              types.CartTotal(items),
		PaymentsEnabled:    true,
		AuthorizationReady: true,
	}
}

func checkoutRouter(svc CheckoutService) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/checkout/sessions", func(r chi.Router) {
		r.Post("/", CheckoutEnter(svc, nil))
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", CheckoutState(svc, nil))
			r.Put("/address", CheckoutUpdateAddress(svc, nil))
			r.Post("/advance", CheckoutAdvance(svc, nil))
			r.Post("/retreat", CheckoutRetreat(svc, nil))
			r.Post("/payment/retry", CheckoutRetryPayment(svc, nil))
			r.Post("/confirm", CheckoutConfirm(svc, nil))
		})
	})
	return r
}

func TestCheckoutEnterCreated(t *testing.T) {
	svc := &stubCheckout{state: sampleState()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(`{"cart_id":"cart-1","guest_email":"dana@example.com"}`))
	checkoutRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cart-1", svc.lastEnter.CartID)
	require.NotNil(t, svc.lastEnter.GuestEmail)
	assert.Equal(t, "dana@example.com", *svc.lastEnter.GuestEmail)

	var envelope struct {
		Data checkoutStateView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "sess-1", envelope.Data.SessionID)
	assert.Equal(t, 2, envelope.Data.Step)
	assert.Equal(t, "payment", envelope.Data.StepName)
	assert.Equal(t, "179.98", envelope.Data.Total)
	assert.Equal(t, "tlpa_abc", envelope.Data.AuthorizationToken)
	require.Len(t, envelope.Data.Steps, 3)
	assert.True(t, envelope.Data.Steps[0].Done)
}

func TestCheckoutEnterRequiresCartID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(`{}`))
	checkoutRouter(&stubCheckout{state: sampleState()}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutEnterEmptyCart(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty").
		WithDetails(map[string]any{"hint": "add tires to your cart before checking out"})}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", strings.NewReader(`{"cart_id":"cart-1"}`))
	checkoutRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope struct {
		Error types.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "EMPTY_CART", envelope.Error.Code)
	details, ok := envelope.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["hint"], "add tires")
}

func TestCheckoutUpdateAddressPassesFields(t *testing.T) {
	svc := &stubCheckout{state: sampleState()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/sessions/sess-1/address", strings.NewReader(`{"city":"Portland","country":"US"}`))
	checkoutRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastFields.City)
	assert.Equal(t, "Portland", *svc.lastFields.City)
	assert.Nil(t, svc.lastFields.Line1)
}

func TestCheckoutConfirmDeclined(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined").
		WithDetails(map[string]any{"reason": "insufficient funds"})}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions/sess-1/confirm", strings.NewReader(`{"source_id":"cnon:card"}`))
	checkoutRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var envelope struct {
		Error types.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "PAYMENT_DECLINED", envelope.Error.Code)
	details, ok := envelope.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "insufficient funds", details["reason"])
}

func TestCheckoutConfirmSuccess(t *testing.T) {
	svc := &stubCheckout{confirmation: &orders.Confirmation{
		PaymentRef: "pay_ok",
		Total:      decimal.NewFromFloat(179.98),
		Currency:   enums.CurrencyUSD,
		Recorded:   true,
	}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions/sess-1/confirm", strings.NewReader(`{"source_id":"cnon:card","buyer_email":"dana@example.com"}`))
	checkoutRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cnon:card", svc.lastMethod.SourceID)
	assert.Equal(t, "dana@example.com", svc.lastMethod.BuyerEmail)

	var envelope struct {
		Data orders.Confirmation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "pay_ok", envelope.Data.PaymentRef)
	assert.True(t, envelope.Data.Recorded)
}

func TestCheckoutConfirmRequiresSource(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions/sess-1/confirm", strings.NewReader(`{}`))
	checkoutRouter(&stubCheckout{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
