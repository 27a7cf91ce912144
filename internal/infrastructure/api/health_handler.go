package api

import "net/http"

type healthResponse struct {
	Status string          `json:"status"`
	Env    map[string]bool `json:"env"`
}

// healthHandler reports liveness and which settings are present
func healthHandler(envPresence map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Env: envPresence})
	}
}
