package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/treadline/treadline-backend/internal/address"
	"github.com/treadline/treadline-backend/internal/checkout"
	"github.com/treadline/treadline-backend/internal/orders"
	"github.com/treadline/treadline-backend/internal/payment"
	pkgauth "github.com/treadline/treadline-backend/pkg/auth"
	"github.com/treadline/treadline-backend/pkg/config"
	"github.com/treadline/treadline-backend/pkg/enums"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartStore struct{}

func (stubCartStore) Load(context.Context, string) []types.CartItem {
	return nil
}

func (stubCartStore) Save(context.Context, string, []types.CartItem) error {
	return nil
}

func (stubCartStore) Clear(context.Context, string) error {
	return nil
}

type stubCheckoutService struct{}

func checkoutState() *checkout.State {
	return &checkout.State{
		Session: &checkout.Session{
			ID:       "sess-1",
			CartID:   "cart-1",
			Currency: enums.CurrencyUSD,
			Steps:    checkout.Steps{Current: enums.StepAddress},
			Version:  1,
		},
	}
}

func (stubCheckoutService) Enter(context.Context, checkout.EnterParams) (*checkout.State, error) {
	return checkoutState(), nil
}

func (stubCheckoutService) Get(context.Context, string) (*checkout.State, error) {
	return checkoutState(), nil
}

func (stubCheckoutService) UpdateAddress(context.Context, string, address.Fields) (*checkout.State, error) {
	return checkoutState(), nil
}

func (stubCheckoutService) Advance(context.Context, string) (*checkout.State, error) {
	return checkoutState(), nil
}

func (stubCheckoutService) Retreat(context.Context, string) (*checkout.State, error) {
	return checkoutState(), nil
}

func (stubCheckoutService) RetryAuthorization(context.Context, string) (*checkout.State, error) {
	return checkoutState(), nil
}

func (stubCheckoutService) Confirm(context.Context, string, payment.MethodDetails) (*orders.Confirmation, error) {
	return &orders.Confirmation{PaymentRef: "pay_1", Recorded: true}, nil
}

type stubAddressFetcher struct{}

func (stubAddressFetcher) DefaultShippingAddress(context.Context, string) (*types.Address, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:          cfg,
		Logger:          logg,
		DBPinger:        stubPinger{},
		RedisPinger:     stubPinger{},
		CartStore:       stubCartStore{},
		Checkout:        stubCheckoutService{},
		AddressAPI:      stubAddressFetcher{},
		MetricsGatherer: gatherer,
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestMetricsExposedWhenRegistryProvided(t *testing.T) {
	router := newTestRouter(testConfig(), prometheus.NewRegistry())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}

	router = newTestRouter(testConfig(), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code == http.StatusOK {
		t.Fatalf("expected metrics to be absent without a registry, got %d", resp.Code)
	}
}

func TestCartRoutesAcceptAnonymousTraffic(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/cart-1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous cart fetch got %d", resp.Code)
	}
}

func TestCheckoutRoutesRejectInvalidToken(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/sess-1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token got %d", resp.Code)
	}
}

func TestAccountGroupRequiresJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/account/default-address", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/account/default-address", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), "user-1", "dana@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
