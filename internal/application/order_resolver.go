package application

import (
	"context"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/metrics"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultSearchPlan is the page size of each order search attempt, in order.
// 250 is the largest page Shopify returns.
var DefaultSearchPlan = []int{50, 250}

// OrderResolver turns an order reference into a Shopify order id
type OrderResolver struct {
	client     ports.ShopifyClient
	searchPlan []int
	logger     zerolog.Logger
}

// NewOrderResolver creates a resolver using DefaultSearchPlan
func NewOrderResolver(client ports.ShopifyClient, logger zerolog.Logger) *OrderResolver {
	return &OrderResolver{
		client:     client,
		searchPlan: DefaultSearchPlan,
		logger:     logger,
	}
}

// Resolve returns the order id for ref. Numeric references are returned without any upstream call.
// Symbolic references are matched exactly against recent orders; found is false when no page matched
// or when a search call failed.
func (r *OrderResolver) Resolve(ctx context.Context, shop, accessToken string, ref domain.OrderReference) (orderID uint64, found bool, err error) {
	if ref.Numeric {
		id, err := ref.NumericID()
		if err != nil {
			return 0, false, err
		}
		metrics.OrderResolutionsTotal.WithLabelValues("numeric").Inc()
		metrics.OrderSearchCalls.Observe(0)
		return id, true, nil
	}

	log := loggerFor(ctx, r.logger)
	calls := 0
	defer func() {
		metrics.OrderSearchCalls.Observe(float64(calls))
	}()

	for attempt, limit := range r.searchPlan {
		calls++
		orders, err := r.client.SearchOrders(ctx, shop, accessToken, ports.OrderSearch{Limit: limit})
		if err != nil {
			log.Warn().
				Err(err).
				Str("shop", shop).
				Str("order_ref", ref.Raw).
				Int("attempt", attempt+1).
				Int("limit", limit).
				Msg("Order search failed, treating order as not found")
			metrics.OrderResolutionsTotal.WithLabelValues("search_error").Inc()
			return 0, false, nil
		}

		if id, ok := matchOrder(orders, ref); ok {
			log.Debug().
				Str("shop", shop).
				Str("order_ref", ref.Raw).
				Uint64("order_id", id).
				Int("attempt", attempt+1).
				Msg("Order reference resolved")
			metrics.OrderResolutionsTotal.WithLabelValues("matched").Inc()
			return id, true, nil
		}
	}

	log.Info().
		Str("shop", shop).
		Str("order_ref", ref.Raw).
		Int("attempts", calls).
		Msg("Order reference not found in recent orders")
	metrics.OrderResolutionsTotal.WithLabelValues("not_found").Inc()
	return 0, false, nil
}

// matchOrder returns the first order whose name or number equals the reference exactly
func matchOrder(orders []domain.OrderSummary, ref domain.OrderReference) (uint64, bool) {
	number, hasNumber := ref.BareNumber()
	for _, o := range orders {
		if o.Name == ref.Raw || (ref.Bare != "" && o.Name == ref.Bare) {
			return o.ID, true
		}
		if hasNumber && o.OrderNumber == number {
			return o.ID, true
		}
	}
	return 0, false
}
