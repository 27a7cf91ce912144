package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/metrics"
	"shopify-order-tracking/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20

// Label values for deliveries whose topic cannot be trusted or is not one we subscribe to
const (
	unverifiedTopicLabel = "unverified"
	otherTopicLabel      = "other"
)

var knownTopics = map[string]bool{
	domain.TopicAppUninstalled:       true,
	domain.TopicCustomersDataRequest: true,
	domain.TopicCustomersRedact:      true,
	domain.TopicShopRedact:           true,
}

// topicLabel bounds the metric label set: headers of unsigned requests are attacker-controlled
func topicLabel(topic string, verified bool) string {
	switch {
	case !verified:
		return unverifiedTopicLabel
	case knownTopics[topic]:
		return topic
	}
	return otherTopicLabel
}

// webhookHandler verifies and dispatches one webhook delivery. With an empty topic the
// X-Shopify-Topic header decides, which is how /webhooks/gdpr serves all privacy topics.
func webhookHandler(dispatcher *application.WebhookDispatcher, verifier *shopify.WebhookVerifier, topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())

		eventTopic := topic
		if eventTopic == "" {
			eventTopic = r.Header.Get("X-Shopify-Topic")
		}
		status := http.StatusOK
		verified := false
		defer func() {
			metrics.WebhooksTotal.WithLabelValues(topicLabel(eventTopic, verified), strconv.Itoa(status)).Inc()
		}()

		// Verify webhook signature before looking at the payload
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
		if err := verifier.VerifyRequest(r); err != nil {
			log.Warn().Err(err).Str("topic", eventTopic).Msg("Webhook signature verification failed")
			status = http.StatusUnauthorized
			http.Error(w, http.StatusText(status), status)
			return
		}
		verified = true

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			status = http.StatusBadRequest
			http.Error(w, "Failed to read request body", status)
			return
		}

		if eventTopic == "" {
			status = http.StatusBadRequest
			http.Error(w, "Missing X-Shopify-Topic header", status)
			return
		}

		event := &domain.WebhookEvent{
			Topic:    eventTopic,
			Shop:     r.Header.Get("X-Shopify-Shop-Domain"),
			Payload:  payload,
			Verified: true,
		}
		if err := dispatcher.Dispatch(r.Context(), event); err != nil {
			log.Error().
				Err(err).
				Str("topic", eventTopic).
				Str("shop", event.Shop).
				Msg("Failed to dispatch webhook event")

			// a payload we can never process is acknowledged so Shopify stops redelivering
			if errors.Is(err, domain.ErrInvalidInput) {
				writeJSON(w, status, map[string]bool{"received": true})
				return
			}
			status = http.StatusInternalServerError
			http.Error(w, "Failed to process webhook event", status)
			return
		}

		writeJSON(w, status, map[string]bool{"received": true})
	}
}
