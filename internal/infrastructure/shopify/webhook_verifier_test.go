package shopify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/app/uninstalled", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(HMACHeader, signature)
	}
	return req
}

func TestWebhookVerifier(t *testing.T) {
	v := NewWebhookVerifier("shpss_secret")
	payload := []byte(`{"myshopify_domain":"demo.myshopify.com"}`)
	signature := sign("shpss_secret", payload)

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr error
	}{
		{"valid signature", payload, signature, nil},
		{"missing header", payload, "", ErrMissingSignature},
		{"not base64", payload, "%%%", ErrInvalidSignature},
		{"tampered body", []byte(`{"myshopify_domain":"evil.myshopify.com"}`), signature, ErrInvalidSignature},
		{"other secret", payload, sign("other", payload), ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.VerifyRequest(webhookRequest(tt.payload, tt.header))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWebhookVerifierLeavesBodyReadable(t *testing.T) {
	v := NewWebhookVerifier("shpss_secret")
	payload := []byte(`{"shop_domain":"demo.myshopify.com"}`)
	req := webhookRequest(payload, sign("shpss_secret", payload))

	require.NoError(t, v.VerifyRequest(req))
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}
