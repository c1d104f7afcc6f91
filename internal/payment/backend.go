package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treadline/treadline-backend/pkg/enums"
	"github.com/treadline/treadline-backend/pkg/types"
)

// Authorization is the session-scoped payment authorization. The token is
// the opaque client secret handed to the payment form; it is bound to the
// cart and billing details present at issuance and must be reissued when
// either changes materially.
type Authorization struct {
	Token              string              `json:"token"`
	Status             enums.PaymentStatus `json:"status"`
	AmountCents        int64               `json:"amount_cents"`
	Currency           enums.Currency      `json:"currency"`
	CartFingerprint    string              `json:"cart_fingerprint"`
	AddressFingerprint string              `json:"address_fingerprint"`
	IssuedAt           time.Time           `json:"issued_at"`
}

// Matches reports whether the authorization is still valid for the given
// cart/address identity, i.e. no reissue is needed.
func (a *Authorization) Matches(cartFingerprint, addressFingerprint string) bool {
	if a == nil {
		return false
	}
	return a.CartFingerprint == cartFingerprint && a.AddressFingerprint == addressFingerprint
}

// MethodDetails carries the tokenized payment method collected by the
// gateway's browser SDK. Never logged verbatim.
type MethodDetails struct {
	SourceID   string `json:"source_id" validate:"required"`
	BuyerEmail string `json:"buyer_email,omitempty" validate:"omitempty,email"`
}

// IntentParams is the input to authorization issuance.
type IntentParams struct {
	SessionID          string
	Items              []types.CartItem
	ShippingAddress    *types.Address
	Currency           enums.Currency
	UserEmail          string
	CartFingerprint    string
	AddressFingerprint string
}

// AmountCents converts the cart total into gateway minor units.
func (p IntentParams) AmountCents() int64 {
	return types.CartTotal(p.Items).Shift(2).Round(0).IntPart()
}

// Total returns the cart total in major units.
func (p IntentParams) Total() decimal.Decimal {
	return types.CartTotal(p.Items)
}

// ConfirmResult reports a settled confirmation.
type ConfirmResult struct {
	PaymentRef string
	Status     enums.PaymentStatus
}

// Backend is the capability interface over the payment gateway. The wizard
// is wired with exactly one implementation: live when the gateway client
// could be constructed, disabled otherwise.
type Backend interface {
	// CreateIntent issues a fresh authorization superseding any prior one.
	CreateIntent(ctx context.Context, params IntentParams) (*Authorization, error)
	// ConfirmPayment submits the payment method against the authorization.
	ConfirmPayment(ctx context.Context, auth Authorization, method MethodDetails, shipping types.Address) (*ConfirmResult, error)
	// Available reports whether real payments can complete.
	Available() bool
}
