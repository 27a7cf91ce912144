package api

import (
	"net/http"

	"shopify-order-tracking/internal/application"
)

// oauthInitHandler initiates the OAuth flow
func oauthInitHandler(credentials *application.CredentialsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q shopQuery
		if err := bindQuery(r, &q); err != nil {
			writeError(w, r, err)
			return
		}

		authURL, err := credentials.BeginInstall(r.Context(), q.Shop)
		if err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

type installResponse struct {
	Success bool   `json:"success"`
	Shop    string `json:"shop"`
}

// oauthCallbackHandler handles the OAuth callback
func oauthCallbackHandler(credentials *application.CredentialsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential, err := credentials.CompleteInstall(r.Context(), r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, installResponse{Success: true, Shop: credential.ShopDomain})
	}
}
