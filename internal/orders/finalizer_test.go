package orders

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/treadline/treadline-backend/pkg/config"
	"github.com/treadline/treadline-backend/pkg/db/models"
	"github.com/treadline/treadline-backend/pkg/logger"
)

type fakeRepo struct {
	failTimes int
	created   []*models.Order
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) CreateOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	if f.failTimes > 0 {
		f.failTimes--
		return nil, errors.New("write failed")
	}
	f.created = append(f.created, order)
	return order, nil
}

func (f *fakeRepo) FindOrderByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindOrderByPaymentRef(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeClearer struct {
	cleared []string
	err     error
}

func (f *fakeClearer) Clear(_ context.Context, cartID string) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, cartID)
	return nil
}

func finalizerLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "orders-test",
		Level:       zerolog.Disabled,
		Output:      &bytes.Buffer{},
	})
}

func finalizerConfig() config.CheckoutConfig {
	return config.CheckoutConfig{OrderMaxAttempts: 2}
}

func TestFinalizeRecordsOrderAndClearsCart(t *testing.T) {
	repo := &fakeRepo{}
	carts := &fakeClearer{}
	fin, err := NewFinalizer(repo, carts, nil, finalizerLogger(), finalizerConfig())
	require.NoError(t, err)

	confirmation := fin.Finalize(context.Background(), testSubmission())
	require.NotNil(t, confirmation)
	assert.True(t, confirmation.Recorded)
	require.NotNil(t, confirmation.OrderID)
	assert.Equal(t, "pay_123", confirmation.PaymentRef)
	assert.Equal(t, []string{"cart-1"}, carts.cleared)
	require.Len(t, repo.created, 1)
}

func TestFinalizeRetriesTransientWriteFailure(t *testing.T) {
	repo := &fakeRepo{failTimes: 1}
	carts := &fakeClearer{}
	fin, err := NewFinalizer(repo, carts, nil, finalizerLogger(), finalizerConfig())
	require.NoError(t, err)

	confirmation := fin.Finalize(context.Background(), testSubmission())
	assert.True(t, confirmation.Recorded)
	require.Len(t, repo.created, 1)
}

func TestFinalizeSwallowsPersistenceFailure(t *testing.T) {
	repo := &fakeRepo{failTimes: 10}
	carts := &fakeClearer{}
	fin, err := NewFinalizer(repo, carts, nil, finalizerLogger(), finalizerConfig())
	require.NoError(t, err)

	start := time.Now()
	confirmation := fin.Finalize(context.Background(), testSubmission())
	require.NotNil(t, confirmation, "a confirmed payment always produces a confirmation")
	assert.False(t, confirmation.Recorded)
	assert.Nil(t, confirmation.OrderID)
	assert.Equal(t, "pay_123", confirmation.PaymentRef)
	assert.Equal(t, []string{"cart-1"}, carts.cleared, "cart is cleared even when recording fails")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFinalizeSwallowsCartClearFailure(t *testing.T) {
	repo := &fakeRepo{}
	carts := &fakeClearer{err: errors.New("redis down")}
	fin, err := NewFinalizer(repo, carts, nil, finalizerLogger(), finalizerConfig())
	require.NoError(t, err)

	confirmation := fin.Finalize(context.Background(), testSubmission())
	assert.True(t, confirmation.Recorded)
	require.NotNil(t, confirmation.OrderID)
}
