package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/treadline/treadline-backend/pkg/enums"
	"github.com/treadline/treadline-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  guest_email TEXT,
  shipping_address TEXT NOT NULL,
  billing_address TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  total NUMERIC NOT NULL,
  payment_status TEXT NOT NULL,
  payment_ref TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  size TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  image_ref TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func testSubmission() Submission {
	email := "dana@example.com"
	state := "OR"
	addr := types.Address{
		Name:       "Dana Fox",
		Line1:      "14 Alder St",
		City:       "Portland",
		State:      &state,
		PostalCode: "97201",
		Country:    "US",
	}
	return Submission{
		CartID:     "cart-1",
		GuestEmail: &email,
		Items: []types.CartItem{
			{ID: 101, Name: "All-Season Touring", Brand: "Roadgrip", Size: "225/45R17", UnitPrice: decimal.NewFromFloat(89.99), Quantity: 2},
			{ID: 204, Name: "Winter Stud", Brand: "Nordica", Size: "205/55R16", UnitPrice: decimal.NewFromFloat(110), Quantity: 1},
		},
		ShippingAddress: addr,
		BillingAddress:  addr,
		Currency:        enums.CurrencyUSD,
		Total:           decimal.NewFromFloat(289.98),
		PaymentRef:      "pay_123",
	}
}

func TestRepositoryCreateAndFindOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.CreateOrder(ctx, testSubmission().toOrder())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindOrderByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "pay_123", found.PaymentRef)
	assert.Equal(t, enums.PaymentStatusConfirmed, found.PaymentStatus)
	assert.True(t, found.Total.Equal(decimal.NewFromFloat(289.98)))
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Portland", found.ShippingAddress.City)

	byRef, err := repo.FindOrderByPaymentRef(ctx, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byRef.ID)
}

func TestRepositoryFindOrderMissing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionToOrderAssignsLineIdentity(t *testing.T) {
	order := testSubmission().toOrder()
	require.NotEqual(t, uuid.Nil, order.ID)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, order.ID, item.OrderID)
	}
	assert.Nil(t, order.UserID)
	require.NotNil(t, order.GuestEmail)
}
