package enums

import "fmt"

// CheckoutStep identifies one of the three wizard steps.
type CheckoutStep int

const (
	StepAddress CheckoutStep = 1
	StepPayment CheckoutStep = 2
	StepReview  CheckoutStep = 3
)

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// IsValid reports whether the step index is in range.
func (s CheckoutStep) IsValid() bool {
	return s >= StepAddress && s <= StepReview
}

// Title returns the user-facing step title.
func (s CheckoutStep) Title() string {
	switch s {
	case StepAddress:
		return "Shipping address"
	case StepPayment:
		return "Payment"
	case StepReview:
		return "Review & confirm"
	}
	return ""
}

// Description returns the user-facing step description.
func (s CheckoutStep) Description() string {
	switch s {
	case StepAddress:
		return "Where should we send your tires?"
	case StepPayment:
		return "How would you like to pay?"
	case StepReview:
		return "Check everything before placing the order."
	}
	return ""
}
