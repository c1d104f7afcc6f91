package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treadline/treadline-backend/internal/address"
	"github.com/treadline/treadline-backend/internal/orders"
	"github.com/treadline/treadline-backend/internal/payment"
	"github.com/treadline/treadline-backend/pkg/enums"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/metrics"
	"github.com/treadline/treadline-backend/pkg/types"
)

// cartReader is the slice of the cart store the service needs.
type cartReader interface {
	Load(ctx context.Context, cartID string) []types.CartItem
}

// intentIssuer governs authorization issuance.
type intentIssuer interface {
	CreateOrRefresh(ctx context.Context, params payment.IntentParams, current *payment.Authorization) (*payment.Authorization, error)
}

// sessionStore persists wizard state between requests.
type sessionStore interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// orderFinalizer turns a confirmed payment into an order record.
type orderFinalizer interface {
	Finalize(ctx context.Context, sub orders.Submission) *orders.Confirmation
}

// State is the full wizard view returned to the client: session, the live
// cart snapshot, and the derived totals the review step renders.
type State struct {
	Session            *Session         `json:"session"`
	Items              []types.CartItem `json:"items"`
	Total              decimal.Decimal  `json:"total"`
	PaymentsEnabled    bool             `json:"payments_enabled"`
	AuthorizationReady bool             `json:"authorization_ready"`
}

// EnterParams opens a checkout session for a cart.
type EnterParams struct {
	CartID     string
	UserID     *string
	GuestEmail *string
	AuthToken  string
	Currency   enums.Currency
}

// Service orchestrates the checkout wizard: session lifecycle, step
// transitions, authorization issuance, and payment confirmation.
type Service struct {
	sessions sessionStore
	carts    cartReader
	intents  intentIssuer
	backend  payment.Backend
	orders   orderFinalizer
	prefill  address.DefaultAddressFetcher
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
}

// NewService wires the checkout service. The prefill fetcher is optional.
func NewService(
	sessions sessionStore,
	carts cartReader,
	intents intentIssuer,
	backend payment.Backend,
	finalizer orderFinalizer,
	prefill address.DefaultAddressFetcher,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if carts == nil {
		return nil, errors.New("cart reader is required")
	}
	if intents == nil {
		return nil, errors.New("intent issuer is required")
	}
	if backend == nil {
		return nil, errors.New("payment backend is required")
	}
	if finalizer == nil {
		return nil, errors.New("order finalizer is required")
	}
	if logg == nil {
		return nil, errors.New("checkout logger is required")
	}
	return &Service{
		sessions: sessions,
		carts:    carts,
		intents:  intents,
		backend:  backend,
		orders:   finalizer,
		prefill:  prefill,
		metrics:  m,
		logger:   logg,
	}, nil
}

// Enter opens a session for the given cart. An empty cart is rejected before
// anything else happens: no session is created and the payment gateway is
// never contacted.
func (s *Service) Enter(ctx context.Context, params EnterParams) (*State, error) {
	if strings.TrimSpace(params.CartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	items := s.carts.Load(ctx, params.CartID)
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty").
			WithDetails(map[string]any{"hint": "add tires to your cart before checking out"})
	}

	currency := params.Currency
	if !currency.IsValid() {
		currency = enums.CurrencyUSD
	}

	now := time.Now().UTC()
	session := &Session{
		ID:         uuid.NewString(),
		CartID:     params.CartID,
		UserID:     params.UserID,
		GuestEmail: params.GuestEmail,
		Currency:   currency,
		Steps:      NewSteps(),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if saved := address.Prefill(ctx, s.prefill, params.AuthToken, s.logger); saved != nil {
		session.Address = *saved
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	ctx = s.logger.WithSessionID(s.logger.WithCartID(ctx, params.CartID), session.ID)
	s.logger.Info(ctx, "checkout session opened")
	return s.stateFor(session, items), nil
}

// Get returns the current wizard state.
func (s *Service) Get(ctx context.Context, sessionID string) (*State, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.stateFor(session, s.carts.Load(ctx, session.CartID)), nil
}

// UpdateAddress merges the edits into the collected address. A material
// change bumps the session version and invalidates the current authorization
// so the next payment-step entry issues a fresh token.
func (s *Service) UpdateAddress(ctx context.Context, sessionID string, fields address.Fields) (*State, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next := address.Apply(session.Address, fields)
	if next.Fingerprint() != session.Address.Fingerprint() {
		session.Address = next
		session.Version++
		if session.Authorization != nil {
			session.InvalidateAuthorization()
			ctx = s.logger.WithSessionID(ctx, session.ID)
			s.logger.Info(ctx, "address changed, payment authorization invalidated")
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
	}

	return s.stateFor(session, s.carts.Load(ctx, session.CartID)), nil
}

// Advance moves the wizard forward. Address→Payment issues or refreshes the
// payment authorization synchronously; a gateway failure leaves the session
// on the payment step without a token and returns a retryable error.
func (s *Service) Advance(ctx context.Context, sessionID string) (*State, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := s.carts.Load(ctx, session.CartID)

	gate := s.gateFor(session, items)
	if err := session.Steps.Advance(gate); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	if session.Steps.Current == enums.StepPayment && s.backend.Available() {
		refreshed, err := s.ensureAuthorization(ctx, session, items)
		if err != nil {
			return nil, err
		}
		session = refreshed
	}

	return s.stateFor(session, items), nil
}

// Retreat moves the wizard back one step without touching collected data.
func (s *Service) Retreat(ctx context.Context, sessionID string) (*State, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Steps.Retreat(); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.stateFor(session, s.carts.Load(ctx, session.CartID)), nil
}

// RetryAuthorization re-runs authorization issuance after a failure. Only
// meaningful on the payment step.
func (s *Service) RetryAuthorization(ctx context.Context, sessionID string) (*State, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Steps.Current != enums.StepPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "authorization retry is only available on the payment step")
	}
	if !s.backend.Available() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment processing is currently unavailable")
	}

	items := s.carts.Load(ctx, session.CartID)
	refreshed, err := s.ensureAuthorization(ctx, session, items)
	if err != nil {
		return nil, err
	}
	return s.stateFor(refreshed, items), nil
}

// Confirm submits the payment on the review step and, on success, finalizes
// the order. A decline keeps the session on review with the cart untouched so
// the shopper can retry with another method.
func (s *Service) Confirm(ctx context.Context, sessionID string, method payment.MethodDetails) (*orders.Confirmation, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Steps.Current != enums.StepReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "confirmation is only available on the review step")
	}

	items := s.carts.Load(ctx, session.CartID)
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty").
			WithDetails(map[string]any{"hint": "the cart was emptied in another view"})
	}

	ctx = s.logger.WithSessionID(ctx, session.ID)

	// With payments disabled no authorization can exist, so the staleness
	// gate would send the shopper on a refresh loop that cannot succeed.
	// Let the backend report its fixed failure instead.
	if !s.backend.Available() {
		s.metrics.IncConfirmation("failure")
		if _, err := s.backend.ConfirmPayment(ctx, payment.Authorization{}, method, session.Address); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment processing is currently unavailable")
	}

	cartFP := types.CartFingerprint(items)
	addressFP := session.Address.Fingerprint()
	if !session.AuthorizationReady(cartFP, addressFP) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment authorization is stale").
			WithDetails(map[string]any{"hint": "return to the payment step to refresh the authorization"})
	}

	started := time.Now()
	result, err := s.backend.ConfirmPayment(ctx, *session.Authorization, method, session.Address)
	s.metrics.ObserveConfirmDuration(time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentDeclined {
			s.metrics.IncConfirmation("declined")
		} else {
			s.metrics.IncConfirmation("failure")
		}
		s.logger.Warn(ctx, "payment confirmation failed")
		return nil, err
	}
	s.metrics.IncConfirmation("success")

	session.Authorization.Status = enums.PaymentStatusConfirmed
	session.Steps.PaymentDone = true

	confirmation := s.orders.Finalize(ctx, orders.Submission{
		CartID:          session.CartID,
		UserID:          session.UserID,
		GuestEmail:      s.guestEmail(session, method),
		Items:           items,
		ShippingAddress: session.Address,
		BillingAddress:  session.Address,
		Currency:        session.Currency,
		Total:           types.CartTotal(items),
		PaymentRef:      result.PaymentRef,
	})

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn(ctx, "deleting completed checkout session failed")
	}
	s.logger.Info(ctx, "checkout completed")
	return confirmation, nil
}

// ensureAuthorization issues or refreshes the token for the session's current
// cart/address identity. The session version taken before the gateway call is
// re-checked afterwards: if a concurrent edit bumped it, the result is stale
// and discarded.
func (s *Service) ensureAuthorization(ctx context.Context, session *Session, items []types.CartItem) (*Session, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	version := session.Version
	params := payment.IntentParams{
		SessionID:          session.ID,
		Items:              items,
		ShippingAddress:    &session.Address,
		Currency:           session.Currency,
		UserEmail:          derefString(session.GuestEmail),
		CartFingerprint:    types.CartFingerprint(items),
		AddressFingerprint: session.Address.Fingerprint(),
	}

	auth, err := s.intents.CreateOrRefresh(ctx, params, session.Authorization)
	if err != nil {
		return nil, err
	}

	latest, err := s.sessions.Load(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if latest.Version != version {
		ctx = s.logger.WithSessionID(ctx, session.ID)
		s.logger.Info(ctx, "discarding authorization issued for an outdated session version")
		return latest, nil
	}

	latest.Authorization = auth
	if err := s.sessions.Save(ctx, latest); err != nil {
		return nil, err
	}
	return latest, nil
}

func (s *Service) gateFor(session *Session, items []types.CartItem) Gate {
	cartFP := types.CartFingerprint(items)
	addressFP := session.Address.Fingerprint()
	return Gate{
		AddressComplete:    session.Address.Complete(),
		AuthorizationReady: session.AuthorizationReady(cartFP, addressFP),
		PaymentsEnabled:    s.backend.Available(),
	}
}

func (s *Service) stateFor(session *Session, items []types.CartItem) *State {
	gate := s.gateFor(session, items)
	return &State{
		Session:            session,
		Items:              items,
		Total:              types.CartTotal(items),
		PaymentsEnabled:    gate.PaymentsEnabled,
		AuthorizationReady: gate.AuthorizationReady,
	}
}

func (s *Service) guestEmail(session *Session, method payment.MethodDetails) *string {
	if session.UserID != nil {
		return nil
	}
	if session.GuestEmail != nil && strings.TrimSpace(*session.GuestEmail) != "" {
		return session.GuestEmail
	}
	if trimmed := strings.TrimSpace(method.BuyerEmail); trimmed != "" {
		return &trimmed
	}
	return nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
