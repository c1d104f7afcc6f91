package address

import (
	"strings"

	"github.com/treadline/treadline-backend/pkg/types"
)

// Fields carries one round of edits from the address form. Nil fields are
// untouched; empty strings clear the field.
type Fields struct {
	Name       *string `json:"name,omitempty"`
	Line1      *string `json:"line1,omitempty"`
	Line2      *string `json:"line2,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    *string `json:"country,omitempty"`
}

// Apply merges the edits into the current address and returns the result.
// Completeness is recomputed by the caller via Address.Complete; no
// verification service is involved, only syntactic checks.
func Apply(current types.Address, edit Fields) types.Address {
	next := current
	if edit.Name != nil {
		next.Name = strings.TrimSpace(*edit.Name)
	}
	if edit.Line1 != nil {
		next.Line1 = strings.TrimSpace(*edit.Line1)
	}
	if edit.Line2 != nil {
		next.Line2 = optional(*edit.Line2)
	}
	if edit.City != nil {
		next.City = strings.TrimSpace(*edit.City)
	}
	if edit.State != nil {
		next.State = optional(*edit.State)
	}
	if edit.PostalCode != nil {
		next.PostalCode = strings.TrimSpace(*edit.PostalCode)
	}
	if edit.Country != nil {
		next.Country = strings.ToUpper(strings.TrimSpace(*edit.Country))
	}
	return next
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
