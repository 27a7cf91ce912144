package api

import (
	"net/http"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

// trackingHandler serves GET /tracking?shop=&order_id= for the storefront widget.
// Soft outcomes are 200 with a message so the widget never has to interpret a 404.
func trackingHandler(tracking *application.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q trackingQuery
		if err := bindQuery(r, &q); err != nil {
			writeError(w, r, err)
			return
		}

		outcome, err := tracking.FetchTracking(r.Context(), q.Shop, q.OrderID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if outcome.Status == domain.TrackingFound {
			writeJSON(w, http.StatusOK, outcome.Record)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: outcome.Message})
	}
}
