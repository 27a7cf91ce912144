package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/domain"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger      zerolog.Logger
	credentials *application.CredentialsService
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, credentials *application.CredentialsService) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:      logger,
		credentials: credentials,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle deletes the shop's access token. Charges are kept until shop/redact
// so a reinstall within the retention window sees its billing history.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain, err := shopDomainFor(event)
	if err != nil {
		return err
	}

	deleted, err := h.credentials.DeleteShop(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to delete credential on uninstall: %w", err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Int64("deleted", deleted).
		Msg("App uninstalled - credential removed")
	return nil
}
