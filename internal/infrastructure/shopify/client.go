package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	apiKey     string
	app        goshopify.App
	apiVersion string
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret, apiVersion string, logger zerolog.Logger) ports.ShopifyClient {
	return &client{
		apiKey: apiKey,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	var opts []goshopify.Option
	if c.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(c.apiVersion))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// orderSearchOptions is encoded into the query string by go-shopify
type orderSearchOptions struct {
	Status string `url:"status,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Order  string `url:"order,omitempty"`
	Fields string `url:"fields,omitempty"`
}

type orderFieldsOptions struct {
	Fields string `url:"fields,omitempty"`
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	// Shopify expects scopes to be comma-separated (no spaces)
	scopesStr := strings.Join(scopes, ",")

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)

	c.logger.Debug().
		Str("shop", shop).
		Str("scopes", scopesStr).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

// VerifyCallback checks the hmac query parameter Shopify signs the OAuth callback with
func (c *client) VerifyCallback(query map[string][]string) (bool, error) {
	u := &url.URL{RawQuery: url.Values(query).Encode()}
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		return false, fmt.Errorf("failed to verify callback hmac: %w", err)
	}
	return ok, nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", upstreamError("exchange_token", shop, err)
	}
	return token, nil
}

// Shop API

func (c *client) ProbeShop(ctx context.Context, shopDomain string, accessToken string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	if _, err := client.Shop.Get(ctx, nil); err != nil {
		return upstreamError("get_shop", shopDomain, err)
	}
	return nil
}

// Order API

func (c *client) SearchOrders(ctx context.Context, shopDomain string, accessToken string, search ports.OrderSearch) ([]domain.OrderSummary, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	// status=any so cancelled and archived orders stay trackable
	orders, err := client.Order.List(ctx, orderSearchOptions{
		Status: "any",
		Limit:  search.Limit,
		Order:  "created_at desc",
		Fields: "id,name,order_number",
	})
	if err != nil {
		return nil, upstreamError("list_orders", shopDomain, err)
	}

	summaries := make([]domain.OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, domain.OrderSummary{
			ID:          o.Id,
			Name:        o.Name,
			OrderNumber: o.OrderNumber,
		})
	}
	return summaries, nil
}

func (c *client) GetOrderFulfillments(ctx context.Context, shopDomain string, accessToken string, orderID uint64) (*domain.OrderDetails, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	order, err := client.Order.Get(ctx, orderID, orderFieldsOptions{Fields: "id,name,fulfillments"})
	if err != nil {
		return nil, upstreamError("get_order", shopDomain, err)
	}

	details := &domain.OrderDetails{
		ID:           order.Id,
		Name:         order.Name,
		Fulfillments: make([]domain.Fulfillment, 0, len(order.Fulfillments)),
	}
	for _, f := range order.Fulfillments {
		details.Fulfillments = append(details.Fulfillments, domain.Fulfillment{
			ID:              f.Id,
			Status:          f.Status,
			TrackingCompany: f.TrackingCompany,
			TrackingNumber:  f.TrackingNumber,
			TrackingNumbers: f.TrackingNumbers,
			TrackingURL:     f.TrackingUrl,
			TrackingURLs:    f.TrackingUrls,
		})
	}
	return details, nil
}

// Billing API

func (c *client) CreateRecurringCharge(ctx context.Context, shopDomain string, accessToken string, req domain.ChargeRequest) (*domain.UpstreamCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	price := req.Plan.Price
	test := req.Test
	created, err := client.RecurringApplicationCharge.Create(ctx, goshopify.RecurringApplicationCharge{
		Name:      req.Plan.Name,
		Price:     &price,
		ReturnURL: req.ReturnURL,
		TrialDays: req.Plan.TrialDays,
		Test:      &test,
	})
	if err != nil {
		return nil, upstreamError("create_recurring_charge", shopDomain, err)
	}
	return fromRecurringCharge(created), nil
}

func (c *client) GetRecurringCharge(ctx context.Context, shopDomain string, accessToken string, chargeID uint64) (*domain.UpstreamCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	charge, err := client.RecurringApplicationCharge.Get(ctx, chargeID, nil)
	if err != nil {
		return nil, upstreamError("get_recurring_charge", shopDomain, err)
	}
	return fromRecurringCharge(charge), nil
}

func (c *client) ActivateRecurringCharge(ctx context.Context, shopDomain string, accessToken string, charge *domain.UpstreamCharge) (*domain.UpstreamCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	price := charge.Price
	test := charge.Test
	activated, err := client.RecurringApplicationCharge.Activate(ctx, goshopify.RecurringApplicationCharge{
		Id:        charge.ID,
		Name:      charge.Name,
		Price:     &price,
		ReturnURL: charge.ReturnURL,
		TrialDays: charge.TrialDays,
		Test:      &test,
	})
	if err != nil {
		return nil, upstreamError("activate_recurring_charge", shopDomain, err)
	}
	return fromRecurringCharge(activated), nil
}

func (c *client) CreateOneTimeCharge(ctx context.Context, shopDomain string, accessToken string, req domain.ChargeRequest) (*domain.UpstreamCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	price := req.Plan.Price
	test := req.Test
	created, err := client.ApplicationCharge.Create(ctx, goshopify.ApplicationCharge{
		Name:      req.Plan.Name,
		Price:     &price,
		ReturnURL: req.ReturnURL,
		Test:      &test,
	})
	if err != nil {
		return nil, upstreamError("create_application_charge", shopDomain, err)
	}
	return fromApplicationCharge(created), nil
}

func (c *client) GetOneTimeCharge(ctx context.Context, shopDomain string, accessToken string, chargeID uint64) (*domain.UpstreamCharge, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	charge, err := client.ApplicationCharge.Get(ctx, chargeID, nil)
	if err != nil {
		return nil, upstreamError("get_application_charge", shopDomain, err)
	}
	return fromApplicationCharge(charge), nil
}

func fromRecurringCharge(ch *goshopify.RecurringApplicationCharge) *domain.UpstreamCharge {
	out := &domain.UpstreamCharge{
		ID:              ch.Id,
		Name:            ch.Name,
		Status:          string(ch.Status),
		TrialDays:       ch.TrialDays,
		ConfirmationURL: ch.ConfirmationURL,
		ReturnURL:       ch.ReturnURL,
	}
	if ch.Price != nil {
		out.Price = *ch.Price
	}
	if ch.Test != nil {
		out.Test = *ch.Test
	}
	return out
}

func fromApplicationCharge(ch *goshopify.ApplicationCharge) *domain.UpstreamCharge {
	out := &domain.UpstreamCharge{
		ID:              ch.Id,
		Name:            ch.Name,
		Status:          string(ch.Status),
		ConfirmationURL: ch.ConfirmationURL,
		ReturnURL:       ch.ReturnURL,
	}
	if ch.Price != nil {
		out.Price = *ch.Price
	}
	if ch.Test != nil {
		out.Test = *ch.Test
	}
	return out
}

// upstreamError converts a go-shopify error into a *domain.UpstreamError carrying the HTTP status
func upstreamError(op, shop string, err error) error {
	return domain.NewUpstreamError(op, shop, statusFromError(err), err)
}

func statusFromError(err error) int {
	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) && respErr.Status != 0 {
		return respErr.Status
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr.Status != 0 {
		return respErrPtr.Status
	}

	// Errors that lost their type on the way up; fall back to the message
	switch {
	case containsAny(err.Error(), []string{"401", "unauthorized", "invalid api key or access token"}):
		return http.StatusUnauthorized
	case containsAny(err.Error(), []string{"403", "forbidden"}):
		return http.StatusForbidden
	case containsAny(err.Error(), []string{"404", "not found"}):
		return http.StatusNotFound
	}
	return 0
}

// containsAny checks if a string contains any of the substrings (case-insensitive)
func containsAny(s string, substrings []string) bool {
	sLower := strings.ToLower(s)
	for _, substr := range substrings {
		if strings.Contains(sLower, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
