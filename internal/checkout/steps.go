package checkout

import (
	"fmt"

	"github.com/treadline/treadline-backend/pkg/enums"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
)

// Steps tracks the wizard position. Completion flags are monotonic: once a
// step has been completed the flag never resets, even when the user retreats
// to edit. The current index is always one of the three defined steps.
type Steps struct {
	Current     enums.CheckoutStep `json:"current"`
	AddressDone bool               `json:"address_done"`
	PaymentDone bool               `json:"payment_done"`
}

// NewSteps starts the wizard at the address step.
func NewSteps() Steps {
	return Steps{Current: enums.StepAddress}
}

// Gate collects the facts an advance is conditioned on. The state machine
// stays pure; the service supplies the context.
type Gate struct {
	AddressComplete    bool
	AuthorizationReady bool
	PaymentsEnabled    bool
}

// Advance moves forward one step when the current step's precondition holds.
// Review never advances; confirmation ends the wizard instead.
func (s *Steps) Advance(gate Gate) error {
	switch s.Current {
	case enums.StepAddress:
		if !gate.AddressComplete {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
		}
		s.AddressDone = true
		s.Current = enums.StepPayment
		return nil
	case enums.StepPayment:
		if gate.PaymentsEnabled && !gate.AuthorizationReady {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment authorization is not ready")
		}
		s.PaymentDone = true
		s.Current = enums.StepReview
		return nil
	case enums.StepReview:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "review is the final step")
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown checkout step %d", s.Current))
	}
}

// Retreat moves back one step. Collected data and completion flags are
// untouched, so a retreat/advance round trip is lossless.
func (s *Steps) Retreat() error {
	if s.Current <= enums.StepAddress {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already at the first step")
	}
	s.Current--
	return nil
}
