package checkout

import (
	"time"

	"github.com/treadline/treadline-backend/internal/payment"
	"github.com/treadline/treadline-backend/pkg/enums"
	"github.com/treadline/treadline-backend/pkg/types"
)

// Session is the server-side wizard state for one checkout attempt. The cart
// snapshot itself stays in the cart store; the session references it by id so
// edits from other open views are always visible here.
type Session struct {
	ID            string                 `json:"id"`
	CartID        string                 `json:"cart_id"`
	UserID        *string                `json:"user_id,omitempty"`
	GuestEmail    *string                `json:"guest_email,omitempty"`
	Currency      enums.Currency         `json:"currency"`
	Address       types.Address          `json:"address"`
	Steps         Steps                  `json:"steps"`
	Authorization *payment.Authorization `json:"authorization,omitempty"`
	// Version increments on every mutation that can invalidate an in-flight
	// authorization; results computed against an older version are discarded.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvalidateAuthorization drops the current token so the next payment-step
// entry must issue a fresh one.
func (s *Session) InvalidateAuthorization() {
	s.Authorization = nil
}

// AuthorizationReady reports whether the stored token is current for the
// given cart and address identity.
func (s *Session) AuthorizationReady(cartFingerprint, addressFingerprint string) bool {
	if s.Authorization == nil {
		return false
	}
	if s.Authorization.Status != enums.PaymentStatusPending {
		return false
	}
	return s.Authorization.Matches(cartFingerprint, addressFingerprint)
}
