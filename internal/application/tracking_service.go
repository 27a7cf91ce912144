package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/metrics"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// TrackingService answers "where is my order" for a shop
type TrackingService struct {
	credentials *CredentialsService
	tokens      ports.TokenValidator
	resolver    *OrderResolver
	client      ports.ShopifyClient
	logger      zerolog.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(
	credentials *CredentialsService,
	tokens ports.TokenValidator,
	resolver *OrderResolver,
	client ports.ShopifyClient,
	logger zerolog.Logger,
) *TrackingService {
	return &TrackingService{
		credentials: credentials,
		tokens:      tokens,
		resolver:    resolver,
		client:      client,
		logger:      logger,
	}
}

// FetchTracking looks up the tracking details of one order.
// Soft outcomes (order not found, not dispatched, no tracking yet) are returned as an outcome;
// errors are domain.ErrInvalidInput, domain.ErrShopNotFound, domain.ErrUnauthorized or upstream failures.
func (s *TrackingService) FetchTracking(ctx context.Context, rawShop, rawOrderRef string) (*domain.TrackingOutcome, error) {
	outcome, err := s.fetchTracking(ctx, rawShop, rawOrderRef)
	if err != nil {
		metrics.TrackingLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TrackingLookupsTotal.WithLabelValues(string(outcome.Status)).Inc()
	return outcome, nil
}

func (s *TrackingService) fetchTracking(ctx context.Context, rawShop, rawOrderRef string) (*domain.TrackingOutcome, error) {
	ref, err := domain.ParseOrderReference(rawOrderRef)
	if err != nil {
		return nil, err
	}

	credential, err := s.credentials.GetCredential(ctx, rawShop)
	if err != nil {
		return nil, err
	}
	shop := credential.ShopDomain
	log := loggerFor(ctx, s.logger).With().
		Str("shop", shop).
		Str("order_ref", ref.Raw).
		Logger()

	valid, err := s.tokens.ValidateToken(ctx, shop, credential.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("%w: access token for %s was rejected", domain.ErrUnauthorized, shop)
	}

	orderID, found, err := s.resolver.Resolve(ctx, shop, credential.AccessToken, ref)
	if err != nil {
		return nil, err
	}
	if !found {
		return orderNotFound(0), nil
	}

	order, err := s.client.GetOrderFulfillments(ctx, shop, credential.AccessToken, orderID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return nil, err
	case errors.Is(err, domain.ErrNotFound):
		log.Info().Uint64("order_id", orderID).Msg("Order disappeared between search and fetch")
		return orderNotFound(orderID), nil
	case err != nil:
		log.Error().Err(err).Uint64("order_id", orderID).Msg("Failed to fetch order fulfillments")
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	outcome := trackingFromOrder(order)
	log.Info().
		Uint64("order_id", orderID).
		Str("status", string(outcome.Status)).
		Int("fulfillments", len(order.Fulfillments)).
		Msg("Tracking lookup completed")
	return outcome, nil
}

func orderNotFound(orderID uint64) *domain.TrackingOutcome {
	return &domain.TrackingOutcome{
		Status:  domain.TrackingOrderNotFound,
		OrderID: orderID,
		Message: domain.MessageOrderNotFound,
	}
}

// trackingFromOrder picks the first fulfillment with a tracking number, else the first one.
// Fields are never mixed across fulfillments.
func trackingFromOrder(order *domain.OrderDetails) *domain.TrackingOutcome {
	if len(order.Fulfillments) == 0 {
		return &domain.TrackingOutcome{
			Status:  domain.TrackingNotDispatched,
			OrderID: order.ID,
			Message: domain.MessageNotDispatched,
		}
	}

	chosen := order.Fulfillments[0]
	for _, f := range order.Fulfillments {
		if f.EffectiveTrackingNumber() != "" {
			chosen = f
			break
		}
	}

	record := domain.TrackingRecord{
		TrackingNumber:  chosen.EffectiveTrackingNumber(),
		TrackingCompany: chosen.TrackingCompany,
		TrackingURL:     chosen.EffectiveTrackingURL(),
	}
	if record.IsEmpty() {
		return &domain.TrackingOutcome{
			Status:  domain.TrackingNoInfo,
			OrderID: order.ID,
			Message: domain.MessageNoTrackingYet,
		}
	}
	return &domain.TrackingOutcome{
		Status:  domain.TrackingFound,
		OrderID: order.ID,
		Record:  &record,
	}
}
