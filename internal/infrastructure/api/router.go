package api

import (
	"net/http"
	"time"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/domain"
	securitymiddleware "shopify-order-tracking/internal/infrastructure/middleware"
	"shopify-order-tracking/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	Credentials *application.CredentialsService
	Tracking    *application.TrackingService
	Billing     *application.BillingService
	Reconciler  *application.BillingReconciler
	Webhooks    *application.WebhookDispatcher
	Verifier    *shopify.WebhookVerifier
	EnvPresence map[string]bool
	SwaggerFile string
	Logger      zerolog.Logger
}

// NewRouter builds the chi router with every route of the app
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securitymiddleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.Metrics)
	r.Use(securitymiddleware.SecurityHeaders())
	r.Use(middleware.Timeout(30 * time.Second))
	// the storefront widget calls /tracking from the shop's own domain
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", securitymiddleware.RequestIDHeader},
		ExposedHeaders: []string{securitymiddleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/health", healthHandler(deps.EnvPresence))
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, deps.SwaggerFile)
	})

	// OAuth routes
	r.Get("/auth", oauthInitHandler(deps.Credentials))
	r.Get("/callback", oauthCallbackHandler(deps.Credentials))

	r.Get("/tracking", trackingHandler(deps.Tracking))

	r.Route("/billing", func(r chi.Router) {
		r.Get("/subscribe", createChargeHandler(deps.Billing, domain.ChargeTypeRecurring))
		r.Get("/lifetime", createChargeHandler(deps.Billing, domain.ChargeTypeLifetime))
		r.Get("/callback", billingCallbackHandler(deps.Reconciler))
		r.Get("/status", billingStatusHandler(deps.Billing))
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/app/uninstalled", webhookHandler(deps.Webhooks, deps.Verifier, domain.TopicAppUninstalled))
		r.Post("/gdpr", webhookHandler(deps.Webhooks, deps.Verifier, ""))
		r.Post("/customers/data_request", webhookHandler(deps.Webhooks, deps.Verifier, domain.TopicCustomersDataRequest))
		r.Post("/customers/redact", webhookHandler(deps.Webhooks, deps.Verifier, domain.TopicCustomersRedact))
		r.Post("/shop/redact", webhookHandler(deps.Webhooks, deps.Verifier, domain.TopicShopRedact))
	})

	return r
}
