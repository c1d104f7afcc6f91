package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/treadline/treadline-backend/pkg/config"
	"github.com/treadline/treadline-backend/pkg/enums"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/metrics"
)

// locker is the slice of the redis client used to serialize issuance.
type locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IntentLockKey(sessionID string) string
}

// Manager governs authorization issuance for checkout sessions: it reuses a
// still-valid authorization, serializes concurrent issuance per session, and
// retries transient gateway failures with bounded backoff.
type Manager struct {
	backend Backend
	locks   locker
	metrics *metrics.CheckoutMetrics
	logger  *logger.Logger
	cfg     config.CheckoutConfig
}

// NewManager wires the intent manager.
func NewManager(backend Backend, locks locker, m *metrics.CheckoutMetrics, logg *logger.Logger, cfg config.CheckoutConfig) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("payment backend is required")
	}
	if locks == nil {
		return nil, errors.New("intent lock store is required")
	}
	if logg == nil {
		return nil, errors.New("intent logger is required")
	}
	return &Manager{backend: backend, locks: locks, metrics: m, logger: logg, cfg: cfg}, nil
}

// Backend exposes the wired payment backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// CreateOrRefresh returns an authorization valid for the current cart and
// address. When the existing one still matches it is returned untouched;
// otherwise a fresh authorization is issued and the old token is superseded.
// At most one issuance per session is in flight at a time.
func (m *Manager) CreateOrRefresh(ctx context.Context, params IntentParams, current *Authorization) (*Authorization, error) {
	if current.Matches(params.CartFingerprint, params.AddressFingerprint) && current.Status == enums.PaymentStatusPending {
		return current, nil
	}

	lockKey := m.locks.IntentLockKey(params.SessionID)
	acquired, err := m.locks.SetNX(ctx, lockKey, "1", m.cfg.IntentLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring authorization lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "authorization refresh already in flight")
	}
	defer func() {
		if delErr := m.locks.Del(context.WithoutCancel(ctx), lockKey); delErr != nil {
			m.logger.Warn(ctx, "releasing authorization lock failed")
		}
	}()

	auth, err := m.issueWithRetry(ctx, params)
	if err != nil {
		m.metrics.IncIntentCreation("failure")
		return nil, err
	}
	m.metrics.IncIntentCreation("success")

	ctx = m.logger.WithSessionID(ctx, params.SessionID)
	m.logger.Info(ctx, "payment authorization refreshed")
	return auth, nil
}

func (m *Manager) issueWithRetry(ctx context.Context, params IntentParams) (*Authorization, error) {
	attempts := m.cfg.IntentMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoffBase := m.cfg.IntentRetryBackoff
	if backoffBase <= 0 {
		backoffBase = 250 * time.Millisecond
	}

	var auth *Authorization
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		issued, issueErr := m.backend.CreateIntent(ctx, params)
		if issueErr != nil {
			if typed := pkgerrors.As(issueErr); typed != nil && typed.Code() == pkgerrors.CodeDependency && m.backend.Available() {
				return retry.RetryableError(issueErr)
			}
			return issueErr
		}
		auth = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}
