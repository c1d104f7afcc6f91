package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treadline/treadline-backend/pkg/enums"
	"github.com/treadline/treadline-backend/pkg/types"
)

// Order is the durable record written once a payment has been confirmed.
// Write-once: recording failures never roll back a confirmed payment.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *string             `gorm:"column:user_id"`
	GuestEmail      *string             `gorm:"column:guest_email"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;serializer:json"`
	BillingAddress  types.Address       `gorm:"column:billing_address;serializer:json"`
	Currency        enums.Currency      `gorm:"column:currency;not null;default:'USD'"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null"`
	PaymentRef      string              `gorm:"column:payment_ref;not null"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
