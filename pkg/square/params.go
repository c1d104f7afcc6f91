package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/treadline/treadline-backend/pkg/types"
)

// PaymentCreateParams encapsulates the inputs for a Square payment.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	SourceID       string
	BuyerEmail     string
	BillingAddress *types.Address
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) toSquareRequest(idempotencyKey, locationID string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		LocationID:     ptrString(locationID),
		SourceID:       p.SourceID,
	}
	if p.AmountCents > 0 {
		req.AmountMoney = moneyPtr(p.AmountCents, p.Currency)
	}
	if trimmed := strings.TrimSpace(p.BuyerEmail); trimmed != "" {
		req.BuyerEmailAddress = ptrString(trimmed)
	}
	if p.BillingAddress != nil {
		req.BillingAddress = addressPtr(*p.BillingAddress)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	return req
}

func addressPtr(addr types.Address) *sq.Address {
	converted := &sq.Address{
		AddressLine1:                 ptrString(addr.Line1),
		Locality:                     ptrString(addr.City),
		PostalCode:                   ptrString(addr.PostalCode),
		Country:                      countryPtr(addr.Country),
		AddressLine2:                 nil,
		AdministrativeDistrictLevel1: nil,
	}
	if addr.Line2 != nil {
		converted.AddressLine2 = ptrString(*addr.Line2)
	}
	if addr.State != nil {
		converted.AdministrativeDistrictLevel1 = ptrString(*addr.State)
	}
	return converted
}

func countryPtr(code string) *sq.Country {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return nil
	}
	c := sq.Country(trimmed)
	return &c
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
