package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/treadline/treadline-backend/pkg/config"
	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/types"
)

const responseBodyReadLimit int64 = 1024

// DefaultAddressFetcher looks up the saved default shipping address for an
// authenticated user. Implementations return (nil, nil) when no default
// exists.
type DefaultAddressFetcher interface {
	DefaultShippingAddress(ctx context.Context, authToken string) (*types.Address, error)
}

// Client calls the account service for saved addresses.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds the account-service address client.
func NewClient(cfg config.AccountConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("account api base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

// DefaultShippingAddress fetches the user's saved default shipping address.
func (c *Client) DefaultShippingAddress(ctx context.Context, authToken string) (*types.Address, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "account client not configured")
	}
	if strings.TrimSpace(authToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "auth token required")
	}

	url := c.baseURL + "/v1/me/default-shipping-address"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build default address request")
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute default address request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"default address request failed")
	}

	var payload struct {
		Data types.Address `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode default address response")
	}
	return &payload.Data, nil
}

// Prefill fetches the saved default address, swallowing failures: prefill is
// a convenience, never a required step. Returns nil when nothing usable is
// available.
func Prefill(ctx context.Context, fetcher DefaultAddressFetcher, authToken string, logg *logger.Logger) *types.Address {
	if fetcher == nil || strings.TrimSpace(authToken) == "" {
		return nil
	}
	saved, err := fetcher.DefaultShippingAddress(ctx, authToken)
	if err != nil {
		if logg != nil {
			logg.Warn(ctx, "default address prefill failed, starting with empty form")
		}
		return nil
	}
	return saved
}
