package orders

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/treadline/treadline-backend/pkg/config"
	"github.com/treadline/treadline-backend/pkg/db/models"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/metrics"
)

// Finalizer turns a confirmed payment into a recorded order and empties the
// originating cart. The payment has already settled when Finalize runs, so
// nothing here is allowed to fail the checkout: recording and clearing
// problems are logged, counted, and folded into the confirmation payload.
type Finalizer struct {
	repo    Repository
	carts   CartClearer
	metrics *metrics.CheckoutMetrics
	logger  *logger.Logger
	cfg     config.CheckoutConfig
}

// NewFinalizer wires the order finalizer.
func NewFinalizer(repo Repository, carts CartClearer, m *metrics.CheckoutMetrics, logg *logger.Logger, cfg config.CheckoutConfig) (*Finalizer, error) {
	if repo == nil {
		return nil, errors.New("order repository is required")
	}
	if carts == nil {
		return nil, errors.New("cart clearer is required")
	}
	if logg == nil {
		return nil, errors.New("finalizer logger is required")
	}
	return &Finalizer{repo: repo, carts: carts, metrics: m, logger: logg, cfg: cfg}, nil
}

// Finalize records the order, clears the cart, and returns the confirmation
// payload. It never returns an error for recording failures; the returned
// Confirmation reports whether the record was written.
func (f *Finalizer) Finalize(ctx context.Context, sub Submission) *Confirmation {
	ctx = f.logger.WithCartID(ctx, sub.CartID)

	confirmation := &Confirmation{
		PaymentRef: sub.PaymentRef,
		Total:      sub.Total,
		Currency:   sub.Currency,
	}

	var background error

	order, err := f.recordOrder(ctx, sub)
	if err != nil {
		background = multierr.Append(background, err)
		f.metrics.IncFinalizeFailure()
	} else {
		confirmation.OrderID = &order.ID
		confirmation.Recorded = true
	}

	if err := f.carts.Clear(ctx, sub.CartID); err != nil {
		background = multierr.Append(background, err)
	}

	if background != nil {
		f.logger.Error(ctx, "order finalization completed with background failures", background)
	} else {
		f.logger.Info(ctx, "order finalized")
	}
	return confirmation
}

func (f *Finalizer) recordOrder(ctx context.Context, sub Submission) (record *models.Order, err error) {
	attempts := f.cfg.OrderMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		created, createErr := f.repo.CreateOrder(ctx, sub.toOrder())
		if createErr != nil {
			return retry.RetryableError(createErr)
		}
		record = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
