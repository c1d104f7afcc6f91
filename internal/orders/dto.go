package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treadline/treadline-backend/pkg/db/models"
	"github.com/treadline/treadline-backend/pkg/enums"
	"github.com/treadline/treadline-backend/pkg/types"
)

// Submission carries everything the finalizer needs after a confirmed
// payment. The payment reference is the settlement source of truth.
type Submission struct {
	CartID          string
	UserID          *string
	GuestEmail      *string
	Items           []types.CartItem
	ShippingAddress types.Address
	BillingAddress  types.Address
	Currency        enums.Currency
	Total           decimal.Decimal
	PaymentRef      string
}

// Confirmation is the payload driving the post-checkout confirmation view.
// OrderID is nil when the order record could not be written; the payment
// reference is always present.
type Confirmation struct {
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
	PaymentRef string          `json:"payment_ref"`
	Total      decimal.Decimal `json:"total"`
	Currency   enums.Currency  `json:"currency"`
	Recorded   bool            `json:"recorded"`
}

func (s Submission) toOrder() *models.Order {
	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: item.ID,
			Name:      item.Name,
			Brand:     item.Brand,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageRef:  item.ImageRef,
		})
	}
	return &models.Order{
		ID:              orderID,
		UserID:          s.UserID,
		GuestEmail:      s.GuestEmail,
		ShippingAddress: s.ShippingAddress,
		BillingAddress:  s.BillingAddress,
		Currency:        s.Currency,
		Total:           s.Total,
		PaymentStatus:   enums.PaymentStatusConfirmed,
		PaymentRef:      s.PaymentRef,
		Items:           items,
	}
}
