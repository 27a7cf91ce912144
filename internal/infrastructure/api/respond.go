package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopify-order-tracking/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Upstream and unexpected
// failures are logged with context and reported without internals.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := zerolog.Ctx(r.Context())

	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request parameters", Fields: fields})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Request rejected as unauthorized")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, domain.ErrShopNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "shop not found"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		event := log.Error().Err(err).Str("path", r.URL.Path)
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			event = event.
				Str("op", upstream.Op).
				Int("upstream_status", upstream.StatusCode).
				Bool("retryable", upstream.Retryable())
		}
		event.Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
