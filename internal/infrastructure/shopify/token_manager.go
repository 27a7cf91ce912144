package shopify

import (
	"context"
	"errors"
	"fmt"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager checks stored Shopify access tokens against the Admin API
type TokenManager struct {
	client ports.ShopifyClient
	logger zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(client ports.ShopifyClient, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		client: client,
		logger: logger,
	}
}

// ValidateToken checks if a token is still valid by making a lightweight API call to Shopify.
// Shopify access tokens don't expire unless the app is uninstalled or the token is revoked,
// so only an explicit 401/403 marks the token invalid. Network errors and 5xx responses
// are logged and the token is assumed valid.
func (tm *TokenManager) ValidateToken(ctx context.Context, shopDomain string, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token is empty")
	}

	if shopDomain == "" {
		return false, fmt.Errorf("shop domain is required for token validation")
	}

	err := tm.client.ProbeShop(ctx, shopDomain, token)
	if err == nil {
		tm.logger.Debug().
			Str("shop", shopDomain).
			Msg("Token validation successful")
		return true, nil
	}

	if errors.Is(err, domain.ErrUnauthorized) {
		tm.logger.Warn().
			Str("shop", shopDomain).
			Msg("Token validation failed: token is invalid or revoked")
		return false, nil
	}

	tm.logger.Warn().
		Err(err).
		Str("shop", shopDomain).
		Msg("Token validation encountered an error (assuming token is valid)")
	return true, nil
}
