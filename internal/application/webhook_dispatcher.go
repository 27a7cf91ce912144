package application

import (
	"context"
	"fmt"

	"shopify-order-tracking/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes verified webhook events for the topics it accepts
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified webhook events to the registered handlers
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher with no handlers
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler; every handler accepting a topic is called, in registration order
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// CanHandle reports whether any registered handler accepts the topic
func (d *WebhookDispatcher) CanHandle(topic string) bool {
	for _, h := range d.handlers {
		if h.CanHandle(topic) {
			return true
		}
	}
	return false
}

// Dispatch runs the handlers for the event's topic. Unverified events are rejected
// and topics nobody handles are acknowledged.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	if !event.Verified {
		return fmt.Errorf("%w: webhook %s is not verified", domain.ErrUnauthorized, event.Topic)
	}

	log := loggerFor(ctx, d.logger)
	handled := false
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		handled = true
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
		}
	}

	if !handled {
		log.Warn().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("No handler registered for webhook topic")
	}
	return nil
}
