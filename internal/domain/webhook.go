package domain

// Webhook topics we are subscribed to
const (
	TopicAppUninstalled       = "app/uninstalled"
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
)

// WebhookEvent is a verified webhook delivery
type WebhookEvent struct {
	Topic    string
	Shop     string
	Payload  []byte
	Verified bool
}
