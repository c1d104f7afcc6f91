package types

import "strings"

// Address is the shipping/billing address collected during checkout.
// Stored as jsonb on order records.
type Address struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      *string `json:"state,omitempty"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Complete reports syntactic completeness: every required field is non-blank.
// Line2 and State are optional.
func (a Address) Complete() bool {
	required := []string{a.Name, a.Line1, a.City, a.PostalCode, a.Country}
	for _, field := range required {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// Fingerprint produces a stable identity for change detection. Two addresses
// with the same fingerprint are materially identical for payment binding.
func (a Address) Fingerprint() string {
	parts := []string{
		strings.TrimSpace(a.Name),
		strings.TrimSpace(a.Line1),
		deref(a.Line2),
		strings.TrimSpace(a.City),
		deref(a.State),
		strings.TrimSpace(a.PostalCode),
		strings.TrimSpace(a.Country),
	}
	return strings.ToLower(strings.Join(parts, "|"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
