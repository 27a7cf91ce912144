package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"shopify-order-tracking/internal/domain"

	"github.com/rs/zerolog"
)

// customerPrivacyPayload is the body of customers/data_request and customers/redact
type customerPrivacyPayload struct {
	ShopDomain string `json:"shop_domain"`
	Customer   struct {
		ID int64 `json:"id"`
	} `json:"customer"`
	OrdersRequested []int64 `json:"orders_requested"`
	OrdersToRedact  []int64 `json:"orders_to_redact"`
	DataRequest     struct {
		ID int64 `json:"id"`
	} `json:"data_request"`
}

// CustomerHandler handles the mandatory customer privacy webhooks.
// Tracking lookups are never persisted, so there is no customer data to export or erase.
type CustomerHandler struct {
	logger zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersDataRequest ||
		topic == domain.TopicCustomersRedact
}

// Handle acknowledges the request after logging what was asked for
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload customerPrivacyPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("%w: failed to parse customer webhook payload: %v", domain.ErrInvalidInput, err)
		}
	}

	shop := event.Shop
	if shop == "" {
		shop = payload.ShopDomain
	}

	switch event.Topic {
	case domain.TopicCustomersDataRequest:
		h.logger.Info().
			Str("shop", shop).
			Int64("customerId", payload.Customer.ID).
			Int64("dataRequestId", payload.DataRequest.ID).
			Int("orders", len(payload.OrdersRequested)).
			Msg("Customer data request acknowledged, no customer data stored")
	case domain.TopicCustomersRedact:
		h.logger.Info().
			Str("shop", shop).
			Int64("customerId", payload.Customer.ID).
			Int("orders", len(payload.OrdersToRedact)).
			Msg("Customer redaction acknowledged, no customer data stored")
	}
	return nil
}
