package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/treadline/treadline-backend/pkg/db/models"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
}

// CartClearer empties the originating cart once an order is placed.
type CartClearer interface {
	Clear(ctx context.Context, cartID string) error
}
