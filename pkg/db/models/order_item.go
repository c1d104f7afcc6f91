package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots one cart line at the moment of purchase.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID int64           `gorm:"column:product_id;not null"`
	Name      string          `gorm:"column:name;not null"`
	Brand     string          `gorm:"column:brand;not null"`
	Size      string          `gorm:"column:size;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	ImageRef  string          `gorm:"column:image_ref"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
