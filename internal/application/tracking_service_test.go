package application

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"shopify-order-tracking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoShop = "demo.myshopify.com"

func TestFetchTrackingFound(t *testing.T) {
	f := newFixture()
	f.install(demoShop)
	f.shopify.orders[450789469] = &domain.OrderDetails{
		ID:   450789469,
		Name: "#1001",
		Fulfillments: []domain.Fulfillment{
			{ID: 1, Status: "success"},
			{ID: 2, TrackingNumbers: []string{"1Z999"}, TrackingCompany: "UPS", TrackingURLs: []string{"https://ups.example/1Z999"}},
			{ID: 3, TrackingNumber: "LATE", TrackingCompany: "DHL"},
		},
	}

	outcome, err := f.tracking.FetchTracking(context.Background(), "DEMO", "450789469")
	require.NoError(t, err)

	assert.Equal(t, domain.TrackingFound, outcome.Status)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, "1Z999", outcome.Record.TrackingNumber)
	assert.Equal(t, "UPS", outcome.Record.TrackingCompany)
	assert.Equal(t, "https://ups.example/1Z999", outcome.Record.TrackingURL)
	assert.Empty(t, f.shopify.searchCalls)
	assert.Equal(t, 1, f.validator.calls)
}

func TestFetchTrackingFallsBackToFirstFulfillment(t *testing.T) {
	f := newFixture()
	f.install(demoShop)
	f.shopify.orders[5] = &domain.OrderDetails{
		ID: 5,
		Fulfillments: []domain.Fulfillment{
			{ID: 1, TrackingCompany: "Local Courier"},
			{ID: 2, TrackingURL: "https://elsewhere.example"},
		},
	}

	outcome, err := f.tracking.FetchTracking(context.Background(), demoShop, "5")
	require.NoError(t, err)

	assert.Equal(t, domain.TrackingFound, outcome.Status)
	assert.Equal(t, domain.TrackingRecord{TrackingCompany: "Local Courier"}, *outcome.Record)
}

func TestFetchTrackingNoFulfillmentsIsNotDispatched(t *testing.T) {
	f := newFixture()
	f.install(demoShop)
	f.shopify.orders[5] = &domain.OrderDetails{ID: 5}

	outcome, err := f.tracking.FetchTracking(context.Background(), demoShop, "5")
	require.NoError(t, err)

	assert.Equal(t, domain.TrackingNotDispatched, outcome.Status)
	assert.Equal(t, domain.MessageNotDispatched, outcome.Message)
	assert.Nil(t, outcome.Record)
}

func TestFetchTrackingFulfillmentWithoutFields(t *testing.T) {
	f := newFixture()
	f.install(demoShop)
	f.shopify.orders[5] = &domain.OrderDetails{ID: 5, Fulfillments: []domain.Fulfillment{{ID: 1, Status: "pending"}}}

	outcome, err := f.tracking.FetchTracking(context.Background(), demoShop, "5")
	require.NoError(t, err)

	assert.Equal(t, domain.TrackingNoInfo, outcome.Status)
	assert.Equal(t, domain.MessageNoTrackingYet, outcome.Message)
}

func TestFetchTrackingSymbolicSecondPage(t *testing.T) {
	f := newFixture()
	f.install(demoShop)
	f.shopify.searchPages = [][]domain.OrderSummary{
		{{ID: 3, Name: "#1005", OrderNumber: 1005}, {ID: 2, Name: "#1004", OrderNumber: 1004}, {ID: 1, Name: "#1003", OrderNumber: 1003}},
		{{ID: 3, Name: "#1005", OrderNumber: 1005}, {ID: 42, Name: "#1002", OrderNumber: 1002}},
	}
	f.shopify.orders[42] = &domain.OrderDetails{
		ID:           42,
		Fulfillments: []domain.Fulfillment{{TrackingNumber: "TRACK42", TrackingCompany: "USPS"}},
	}

	outcome, err := f.tracking.FetchTracking(context.Background(), demoShop, "#1002")
	require.NoError(t, err)

	assert.Equal(t, domain.TrackingFound, outcome.Status)
	assert.Equal(t, "TRACK42", outcome.Record.TrackingNumber)
	assert.Len(t, f.shopify.searchCalls, 2)
}

func TestFetchTrackingUnresolvedOrder(t *testing.T) {
	f := newFixture()
	f.install(demoShop)

	outcome, err := f.tracking.FetchTracking(context.Background(), demoShop, "#404")
	require.NoError(t, err)

	assert.Equal(t, domain.TrackingOrderNotFound, outcome.Status)
	assert.Equal(t, domain.MessageOrderNotFound, outcome.Message)
	assert.Len(t, f.shopify.searchCalls, 2)
}

func TestFetchTrackingUpstream404IsSoftNotFound(t *testing.T) {
	f := newFixture()
	f.install(demoShop)

	outcome, err := f.tracking.FetchTracking(context.Background(), demoShop, "123")
	require.NoError(t, err)
	assert.Equal(t, domain.TrackingOrderNotFound, outcome.Status)
}

func TestFetchTrackingErrors(t *testing.T) {
	t.Run("unknown shop", func(t *testing.T) {
		f := newFixture()
		_, err := f.tracking.FetchTracking(context.Background(), demoShop, "1")
		assert.ErrorIs(t, err, domain.ErrShopNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing order id", func(t *testing.T) {
		f := newFixture()
		f.install(demoShop)
		_, err := f.tracking.FetchTracking(context.Background(), demoShop, " ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("invalid shop", func(t *testing.T) {
		f := newFixture()
		_, err := f.tracking.FetchTracking(context.Background(), "evil.example.com", "1")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("revoked token", func(t *testing.T) {
		f := newFixture()
		f.install(demoShop)
		f.validator.valid = false
		_, err := f.tracking.FetchTracking(context.Background(), demoShop, "1")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Empty(t, f.shopify.searchCalls)
	})

	t.Run("token rejected while fetching order", func(t *testing.T) {
		f := newFixture()
		f.install(demoShop)
		f.shopify.orderErr = domain.NewUpstreamError("get_order", demoShop, http.StatusUnauthorized, errors.New("Unauthorized"))
		_, err := f.tracking.FetchTracking(context.Background(), demoShop, "1")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("upstream outage", func(t *testing.T) {
		f := newFixture()
		f.install(demoShop)
		f.shopify.orderErr = domain.NewUpstreamError("get_order", demoShop, http.StatusBadGateway, errors.New("Bad Gateway"))
		_, err := f.tracking.FetchTracking(context.Background(), demoShop, "1")
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}
