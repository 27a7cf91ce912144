package api

import (
	"html/template"
	"net/http"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/domain"

	"github.com/rs/zerolog"
)

// The approval page refuses to render in the admin iframe, so the top window navigates
var topLevelRedirect = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Redirecting to Shopify</title>
</head>
<body>
<p>Redirecting to Shopify to approve the charge. <a href="{{.URL}}" target="_top">Continue</a></p>
<script>window.top.location.href = {{.URL}};</script>
</body>
</html>
`))

// createChargeHandler serves GET /billing/subscribe and GET /billing/lifetime
func createChargeHandler(billing *application.BillingService, chargeType domain.ChargeType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q shopQuery
		if err := bindQuery(r, &q); err != nil {
			writeError(w, r, err)
			return
		}

		redirect, err := billing.CreateCharge(r.Context(), q.Shop, chargeType)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := topLevelRedirect.Execute(w, struct{ URL string }{URL: redirect.ConfirmationURL}); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render billing redirect page")
		}
	}
}

// billingCallbackHandler serves GET /billing/callback. It always answers with a redirect.
func billingCallbackHandler(reconciler *application.BillingReconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q billingCallbackQuery
		if err := bindQuery(r, &q); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Malformed billing callback")
			target := reconciler.FallbackRedirect()
			if shop, nerr := domain.NormalizeShopDomain(q.Shop); nerr == nil {
				target = reconciler.AdminRedirect(shop, application.BillingError)
			}
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		result := reconciler.Reconcile(r.Context(), application.CallbackInput{
			Shop:     q.Shop,
			Type:     q.Type,
			ChargeID: q.ChargeID,
		})
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
	}
}

type billingStatusResponse struct {
	HasActiveBilling bool `json:"hasActiveBilling"`
}

// billingStatusHandler serves GET /billing/status
func billingStatusHandler(billing *application.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q shopQuery
		if err := bindQuery(r, &q); err != nil {
			writeError(w, r, err)
			return
		}

		active, err := billing.HasActiveBilling(r.Context(), q.Shop)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, billingStatusResponse{HasActiveBilling: active})
	}
}
