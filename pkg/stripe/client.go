// Package stripe holds the storefront's Stripe credentials and the
// checkout session resource the payment provider talks to.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// keyPrefixes lists the secret and restricted key prefixes valid per env.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test", "rk_test"},
	liveEnv: {"sk_live", "rk_live"},
}

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// CheckoutSessionAPI is the part of Stripe's checkout session resource the
// payment provider calls.
type CheckoutSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Client struct {
	environment   string
	signingSecret string
	currency      string
	sessions      CheckoutSessionAPI
}

// NewClient rejects a key that does not belong to the configured
// environment, so a live key never runs against the test env or back.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if env == "" {
		env = testEnv
	}
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, errInvalidStripeEnv
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case apiKey == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	case !hasAnyPrefix(apiKey, prefixes):
		return nil, fmt.Errorf("stripe environment %q requires a %s key (%s)", env, env, strings.Join(prefixes, "/"))
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stripe_env": env, "currency": currency}), "stripe client initialized")
	}
	return &Client{
		environment:   env,
		signingSecret: secret,
		currency:      currency,
		sessions:      &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: apiKey},
	}, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c *Client) CheckoutSessions() CheckoutSessionAPI {
	if c == nil {
		return nil
	}
	return c.sessions
}

// Environment is "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Currency is the lower-case ISO code every order is charged in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// SigningSecret verifies webhook signatures.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
