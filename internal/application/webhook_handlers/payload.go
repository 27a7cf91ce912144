package webhook_handlers

import (
	"encoding/json"
	"fmt"

	"shopify-order-tracking/internal/domain"
)

// shopPayload covers the shop fields of app/uninstalled and the privacy webhooks
type shopPayload struct {
	ShopID          int64  `json:"shop_id"`
	ShopDomain      string `json:"shop_domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Domain          string `json:"domain"`
}

// shopDomainFor prefers the X-Shopify-Shop-Domain header, then the payload.
// The payload's "domain" may be a custom storefront domain so it is tried last.
func shopDomainFor(event *domain.WebhookEvent) (string, error) {
	// the header is covered by the same HMAC as the body, so a valid one settles it
	if event.Shop != "" {
		if shop, err := domain.NormalizeShopDomain(event.Shop); err == nil {
			return shop, nil
		}
	}
	if len(event.Payload) == 0 {
		return "", fmt.Errorf("%w: %s webhook carries no shop domain", domain.ErrInvalidInput, event.Topic)
	}

	var payload shopPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return "", fmt.Errorf("%w: failed to parse %s webhook payload: %v", domain.ErrInvalidInput, event.Topic, err)
	}
	for _, c := range []string{payload.ShopDomain, payload.MyshopifyDomain, payload.Domain} {
		if c == "" {
			continue
		}
		if shop, err := domain.NormalizeShopDomain(c); err == nil {
			return shop, nil
		}
	}
	return "", fmt.Errorf("%w: %s webhook carries no shop domain", domain.ErrInvalidInput, event.Topic)
}
