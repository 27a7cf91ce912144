package webhook_handlers

import (
	"context"
	"path/filepath"
	"testing"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *repository.SQLRepository {
	t.Helper()
	repo, err := repository.NewSQLRepository(repository.DriverSQLite, filepath.Join(t.TempDir(), "hooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seed(t *testing.T, repo *repository.SQLRepository, shop string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertShop(ctx, &domain.ShopCredential{ShopDomain: shop, AccessToken: "sealed"}))
	require.NoError(t, repo.CreateCharge(ctx, &domain.Charge{
		Shop:     shop,
		ChargeID: 1,
		Status:   domain.ChargeStatusActive,
		Type:     domain.ChargeTypeRecurring,
		Amount:   decimal.RequireFromString("4.99"),
		Currency: "USD",
	}))
}

func TestAppUninstalledDeletesCredentialOnly(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "demo.myshopify.com")
	creds := application.NewCredentialsService(repo, nil, nil, nil, nil, "", zerolog.Nop())
	h := NewAppUninstalledHandler(zerolog.Nop(), creds)

	event := &domain.WebhookEvent{
		Topic:    domain.TopicAppUninstalled,
		Payload:  []byte(`{"id":1,"domain":"shop.example.com","myshopify_domain":"demo.myshopify.com"}`),
		Verified: true,
	}
	require.True(t, h.CanHandle(event.Topic))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	shop, err := repo.GetShop(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, shop)

	charge, err := repo.LatestCharge(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.NotNil(t, charge)
}

func TestAppUninstalledTrustsHeaderOverPayloadShape(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "demo.myshopify.com")
	creds := application.NewCredentialsService(repo, nil, nil, nil, nil, "", zerolog.Nop())
	h := NewAppUninstalledHandler(zerolog.Nop(), creds)

	event := &domain.WebhookEvent{
		Topic:    domain.TopicAppUninstalled,
		Shop:     "demo.myshopify.com",
		Payload:  []byte(`{"shop_id":"123"}`),
		Verified: true,
	}
	require.NoError(t, h.Handle(context.Background(), event))

	shop, err := repo.GetShop(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, shop)
}

func TestShopRedactDeletesEverything(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "demo.myshopify.com")
	h := NewShopRedactHandler(zerolog.Nop(), repo, repo)

	event := &domain.WebhookEvent{
		Topic:    domain.TopicShopRedact,
		Shop:     "demo.myshopify.com",
		Payload:  []byte(`{"shop_id":954889,"shop_domain":"demo.myshopify.com"}`),
		Verified: true,
	}
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	shop, _ := repo.GetShop(context.Background(), "demo.myshopify.com")
	assert.Nil(t, shop)
	charge, _ := repo.LatestCharge(context.Background(), "demo.myshopify.com")
	assert.Nil(t, charge)
}

func TestCustomerHandlerAcknowledges(t *testing.T) {
	h := NewCustomerHandler(zerolog.Nop())
	assert.True(t, h.CanHandle(domain.TopicCustomersDataRequest))
	assert.True(t, h.CanHandle(domain.TopicCustomersRedact))
	assert.False(t, h.CanHandle(domain.TopicShopRedact))

	err := h.Handle(context.Background(), &domain.WebhookEvent{
		Topic:   domain.TopicCustomersRedact,
		Payload: []byte(`{"shop_domain":"demo.myshopify.com","customer":{"id":191167},"orders_to_redact":[299938]}`),
	})
	assert.NoError(t, err)

	err = h.Handle(context.Background(), &domain.WebhookEvent{Topic: domain.TopicCustomersDataRequest, Payload: []byte(`not json`)})
	assert.Error(t, err)
}

func TestShopDomainFor(t *testing.T) {
	tests := []struct {
		name    string
		event   domain.WebhookEvent
		want    string
		wantErr bool
	}{
		{"header wins", domain.WebhookEvent{Shop: "Demo.myshopify.com", Payload: []byte(`{"shop_domain":"other.myshopify.com"}`)}, "demo.myshopify.com", false},
		{"custom domain skipped", domain.WebhookEvent{Payload: []byte(`{"domain":"shop.example.com","myshopify_domain":"demo.myshopify.com"}`)}, "demo.myshopify.com", false},
		{"header with payload of another shape", domain.WebhookEvent{Shop: "demo.myshopify.com", Payload: []byte(`{"shop_id":"123"}`)}, "demo.myshopify.com", false},
		{"invalid header falls back to payload", domain.WebhookEvent{Shop: "not a shop", Payload: []byte(`{"shop_domain":"demo.myshopify.com"}`)}, "demo.myshopify.com", false},
		{"no shop", domain.WebhookEvent{Payload: []byte(`{}`)}, "", true},
		{"no header and no payload", domain.WebhookEvent{}, "", true},
		{"bad json", domain.WebhookEvent{Payload: []byte(`{`)}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shopDomainFor(&tt.event)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
