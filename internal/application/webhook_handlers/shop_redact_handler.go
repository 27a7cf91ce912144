package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// ShopRedactHandler erases everything stored for a shop, 48 hours after uninstall
type ShopRedactHandler struct {
	logger  zerolog.Logger
	shops   ports.ShopRepository
	charges ports.ChargeRepository
}

// NewShopRedactHandler creates a new shop/redact webhook handler
func NewShopRedactHandler(logger zerolog.Logger, shops ports.ShopRepository, charges ports.ChargeRepository) *ShopRedactHandler {
	return &ShopRedactHandler{
		logger:  logger,
		shops:   shops,
		charges: charges,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ShopRedactHandler) CanHandle(topic string) bool {
	return topic == domain.TopicShopRedact
}

// Handle deletes the credential and every charge of the shop
func (h *ShopRedactHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain, err := shopDomainFor(event)
	if err != nil {
		return err
	}

	shops, err := h.shops.DeleteShop(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	charges, err := h.charges.DeleteChargesForShop(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to delete charges: %w", err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Int64("shops_deleted", shops).
		Int64("charges_deleted", charges).
		Msg("Shop data redacted")
	return nil
}
