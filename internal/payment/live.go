package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/treadline/treadline-backend/pkg/enums"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/square"
	"github.com/treadline/treadline-backend/pkg/types"
)

const tokenPrefix = "tlpa"

// gateway is the slice of the Square client the live backend needs.
type gateway interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// liveBackend issues real authorizations and settles them through Square.
type liveBackend struct {
	gateway gateway
	logger  *logger.Logger
	now     func() time.Time
}

// NewLiveBackend wires the Square-backed payment backend.
func NewLiveBackend(gw gateway, logg *logger.Logger) (Backend, error) {
	if gw == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("payment logger is required")
	}
	return &liveBackend{gateway: gw, logger: logg, now: time.Now}, nil
}

func (b *liveBackend) Available() bool { return true }

func (b *liveBackend) CreateIntent(ctx context.Context, params IntentParams) (*Authorization, error) {
	amount := params.AmountCents()
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart total must be positive")
	}

	auth := &Authorization{
		Token:              fmt.Sprintf("%s_%s", tokenPrefix, uuid.NewString()),
		Status:             enums.PaymentStatusPending,
		AmountCents:        amount,
		Currency:           params.Currency,
		CartFingerprint:    params.CartFingerprint,
		AddressFingerprint: params.AddressFingerprint,
		IssuedAt:           b.now().UTC(),
	}

	ctx = b.logger.WithFields(ctx, map[string]any{
		"amount_cents": amount,
		"currency":     auth.Currency.String(),
	})
	b.logger.Info(ctx, "payment authorization issued")
	return auth, nil
}

func (b *liveBackend) ConfirmPayment(ctx context.Context, auth Authorization, method MethodDetails, shipping types.Address) (*ConfirmResult, error) {
	if strings.TrimSpace(method.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}
	if auth.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "authorization is not pending")
	}

	payment, err := b.gateway.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: auth.AmountCents,
		Currency:    auth.Currency.String(),
		SourceID:    method.SourceID,
		BuyerEmail:  method.BuyerEmail,
		// Billing defaults to the shipping address collected in the wizard.
		BillingAddress: &shipping,
		IdempotencyKey: auth.Token,
		ReferenceID:    auth.Token,
	})
	if err != nil {
		return nil, err
	}

	status := strings.ToUpper(stringValue(payment.GetStatus()))
	switch status {
	case "COMPLETED", "APPROVED":
		return &ConfirmResult{
			PaymentRef: stringValue(payment.GetID()),
			Status:     enums.PaymentStatusConfirmed,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was not approved").
			WithDetails(map[string]any{"reason": strings.ToLower(status)})
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
