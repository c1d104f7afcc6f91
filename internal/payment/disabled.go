package payment

import (
	"context"

	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/types"
)

// unavailableMessage is the fixed confirmation failure surfaced while the
// gateway is not configured. The wizard still renders every step; only
// settlement is blocked.
const unavailableMessage = "payment processing is currently unavailable"

// disabledBackend is the degraded backend used when no gateway credentials
// are present. Authorization issuance fails closed and confirmation always
// reports the same failure.
type disabledBackend struct {
	logger *logger.Logger
}

// NewDisabledBackend returns the degraded payment backend.
func NewDisabledBackend(logg *logger.Logger) Backend {
	return &disabledBackend{logger: logg}
}

func (b *disabledBackend) Available() bool { return false }

func (b *disabledBackend) CreateIntent(ctx context.Context, _ IntentParams) (*Authorization, error) {
	if b.logger != nil {
		b.logger.Warn(ctx, "authorization requested with payments disabled")
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, unavailableMessage)
}

func (b *disabledBackend) ConfirmPayment(ctx context.Context, _ Authorization, _ MethodDetails, _ types.Address) (*ConfirmResult, error) {
	if b.logger != nil {
		b.logger.Warn(ctx, "confirmation requested with payments disabled")
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, unavailableMessage)
}
