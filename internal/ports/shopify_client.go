package ports

import (
	"context"

	"shopify-order-tracking/internal/domain"
)

// OrderSearch is one bounded page request against the orders endpoint
type OrderSearch struct {
	Limit int
}

// ShopifyClient defines the Shopify Admin API operations the app relies on.
// Failed calls return *domain.UpstreamError.
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	VerifyCallback(query map[string][]string) (bool, error)
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// ProbeShop is the lightweight call used to check that a token is still accepted
	ProbeShop(ctx context.Context, shop string, accessToken string) error

	// Order API
	SearchOrders(ctx context.Context, shop string, accessToken string, search OrderSearch) ([]domain.OrderSummary, error)
	GetOrderFulfillments(ctx context.Context, shop string, accessToken string, orderID uint64) (*domain.OrderDetails, error)

	// Billing API
	CreateRecurringCharge(ctx context.Context, shop string, accessToken string, req domain.ChargeRequest) (*domain.UpstreamCharge, error)
	GetRecurringCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) (*domain.UpstreamCharge, error)
	ActivateRecurringCharge(ctx context.Context, shop string, accessToken string, charge *domain.UpstreamCharge) (*domain.UpstreamCharge, error)
	CreateOneTimeCharge(ctx context.Context, shop string, accessToken string, req domain.ChargeRequest) (*domain.UpstreamCharge, error)
	GetOneTimeCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) (*domain.UpstreamCharge, error)
}

// TokenValidator checks whether Shopify still accepts a stored access token
type TokenValidator interface {
	ValidateToken(ctx context.Context, shopDomain string, token string) (bool, error)
}
