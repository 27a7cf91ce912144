package application

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fakeShopify records every call and answers from canned data
type fakeShopify struct {
	mu sync.Mutex

	probeErr error

	searchPages [][]domain.OrderSummary // answer for the n-th SearchOrders call
	searchErr   error
	searchCalls []ports.OrderSearch

	orders   map[uint64]*domain.OrderDetails
	orderErr error

	recurring   map[uint64]*domain.UpstreamCharge
	oneTime     map[uint64]*domain.UpstreamCharge
	nextID      uint64
	createErr   error
	created     []domain.ChargeRequest
	activations []uint64

	exchangeToken string
	callbackOK    bool
}

func newFakeShopify() *fakeShopify {
	return &fakeShopify{
		orders:        map[uint64]*domain.OrderDetails{},
		recurring:     map[uint64]*domain.UpstreamCharge{},
		oneTime:       map[uint64]*domain.UpstreamCharge{},
		nextID:        1000,
		exchangeToken: "shpat_new",
		callbackOK:    true,
	}
}

func (f *fakeShopify) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state + "&scope=" + strings.Join(scopes, ",") + "&redirect_uri=" + redirectURI, nil
}

func (f *fakeShopify) VerifyCallback(query map[string][]string) (bool, error) {
	return f.callbackOK, nil
}

func (f *fakeShopify) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	return f.exchangeToken, nil
}

func (f *fakeShopify) ProbeShop(ctx context.Context, shop string, accessToken string) error {
	return f.probeErr
}

func (f *fakeShopify) SearchOrders(ctx context.Context, shop string, accessToken string, search ports.OrderSearch) ([]domain.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.searchCalls)
	f.searchCalls = append(f.searchCalls, search)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if n < len(f.searchPages) {
		return f.searchPages[n], nil
	}
	return nil, nil
}

func (f *fakeShopify) GetOrderFulfillments(ctx context.Context, shop string, accessToken string, orderID uint64) (*domain.OrderDetails, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.NewUpstreamError("get_order", shop, http.StatusNotFound, errNotFoundUpstream)
	}
	return order, nil
}

func (f *fakeShopify) CreateRecurringCharge(ctx context.Context, shop string, accessToken string, req domain.ChargeRequest) (*domain.UpstreamCharge, error) {
	return f.create(f.recurring, req)
}

func (f *fakeShopify) CreateOneTimeCharge(ctx context.Context, shop string, accessToken string, req domain.ChargeRequest) (*domain.UpstreamCharge, error) {
	return f.create(f.oneTime, req)
}

func (f *fakeShopify) create(into map[uint64]*domain.UpstreamCharge, req domain.ChargeRequest) (*domain.UpstreamCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	f.created = append(f.created, req)
	charge := &domain.UpstreamCharge{
		ID:              f.nextID,
		Name:            req.Plan.Name,
		Status:          "pending",
		Price:           req.Plan.Price,
		TrialDays:       req.Plan.TrialDays,
		ReturnURL:       req.ReturnURL,
		ConfirmationURL: "https://admin.shopify.com/charges/confirm",
		Test:            req.Test,
	}
	into[charge.ID] = charge
	return charge, nil
}

func (f *fakeShopify) GetRecurringCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) (*domain.UpstreamCharge, error) {
	charge, ok := f.recurring[chargeID]
	if !ok {
		return nil, domain.NewUpstreamError("get_recurring_charge", shop, http.StatusNotFound, errNotFoundUpstream)
	}
	return charge, nil
}

func (f *fakeShopify) ActivateRecurringCharge(ctx context.Context, shop string, accessToken string, charge *domain.UpstreamCharge) (*domain.UpstreamCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations = append(f.activations, charge.ID)
	activated := *charge
	activated.Status = "active"
	f.recurring[charge.ID] = &activated
	return &activated, nil
}

func (f *fakeShopify) GetOneTimeCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) (*domain.UpstreamCharge, error) {
	charge, ok := f.oneTime[chargeID]
	if !ok {
		return nil, domain.NewUpstreamError("get_application_charge", shop, http.StatusNotFound, errNotFoundUpstream)
	}
	return charge, nil
}

type upstreamErr string

func (e upstreamErr) Error() string { return string(e) }

const errNotFoundUpstream = upstreamErr("Not Found")

// memShops is an in-memory ShopRepository
type memShops struct {
	mu    sync.Mutex
	shops map[string]domain.ShopCredential
}

func newMemShops() *memShops {
	return &memShops{shops: map[string]domain.ShopCredential{}}
}

func (m *memShops) GetShop(ctx context.Context, shopDomain string) (*domain.ShopCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shops[shopDomain]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memShops) UpsertShop(ctx context.Context, shop *domain.ShopCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shops[shop.ShopDomain] = *shop
	return nil
}

func (m *memShops) DeleteShop(ctx context.Context, shopDomain string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shops[shopDomain]; !ok {
		return 0, nil
	}
	delete(m.shops, shopDomain)
	return 1, nil
}

// memCharges is an in-memory ChargeRepository with the same ordering rules as the SQL one
type memCharges struct {
	mu      sync.Mutex
	charges []domain.Charge
	updates int
}

func (m *memCharges) CreateCharge(ctx context.Context, charge *domain.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if charge.ID == "" {
		charge.ID = "row-" + strconv.Itoa(len(m.charges)+1)
	}
	m.charges = append(m.charges, *charge)
	return nil
}

func (m *memCharges) GetChargeByChargeID(ctx context.Context, chargeID uint64) (*domain.Charge, error) {
	return m.find(func(c domain.Charge) bool { return c.ChargeID == chargeID }), nil
}

func (m *memCharges) LatestCharge(ctx context.Context, shopDomain string) (*domain.Charge, error) {
	return m.find(func(c domain.Charge) bool { return c.Shop == shopDomain }), nil
}

func (m *memCharges) LatestPendingCharge(ctx context.Context, shopDomain string, chargeType domain.ChargeType) (*domain.Charge, error) {
	return m.find(func(c domain.Charge) bool {
		return c.Shop == shopDomain && c.Type == chargeType && c.Status == domain.ChargeStatusPending
	}), nil
}

func (m *memCharges) find(match func(domain.Charge) bool) *domain.Charge {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []domain.Charge
	for _, c := range m.charges {
		if match(c) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ChargeID > hits[j].ChargeID
	})
	return &hits[0]
}

func (m *memCharges) UpdateChargeStatus(ctx context.Context, chargeID uint64, status domain.ChargeStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	var n int64
	for i := range m.charges {
		if m.charges[i].ChargeID == chargeID {
			m.charges[i].Status = status
			n++
		}
	}
	return n, nil
}

func (m *memCharges) DeleteChargesForShop(ctx context.Context, shopDomain string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.charges[:0]
	var n int64
	for _, c := range m.charges {
		if c.Shop == shopDomain {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.charges = kept
	return n, nil
}

// memSessions is an in-memory SessionStore
type memSessions struct {
	sessions map[string]domain.Session
}

func (m *memSessions) CreateSession(ctx context.Context, session *domain.Session) error {
	if m.sessions == nil {
		m.sessions = map[string]domain.Session{}
	}
	m.sessions[session.State] = *session
	return nil
}

func (m *memSessions) ConsumeSession(ctx context.Context, state string) (*domain.Session, error) {
	s, ok := m.sessions[state]
	if !ok {
		return nil, nil
	}
	delete(m.sessions, state)
	return &s, nil
}

// prefixCipher marks tokens as encrypted without real cryptography
type prefixCipher struct{}

func (prefixCipher) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (prefixCipher) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// staticValidator answers ValidateToken with a fixed result
type staticValidator struct {
	valid bool
	calls int
}

func (v *staticValidator) ValidateToken(ctx context.Context, shopDomain string, token string) (bool, error) {
	v.calls++
	return v.valid, nil
}

var testPlans = map[domain.ChargeType]domain.Plan{
	domain.ChargeTypeRecurring: {
		Type:      domain.ChargeTypeRecurring,
		Name:      "Order Tracking Monthly",
		Price:     decimal.RequireFromString("4.99"),
		Currency:  "USD",
		TrialDays: 3,
	},
	domain.ChargeTypeLifetime: {
		Type:      domain.ChargeTypeLifetime,
		Name:      "Order Tracking Lifetime",
		Price:     decimal.RequireFromString("49.99"),
		Currency:  "USD",
		TrialDays: 3,
	},
}

var testBillingConfig = BillingConfig{
	Plans:     testPlans,
	AppURL:    "https://app.example.com",
	AppHandle: "order-tracking",
	Test:      true,
}

// fixture wires the application services over the fakes
type fixture struct {
	shopify    *fakeShopify
	shops      *memShops
	charges    *memCharges
	sessions   *memSessions
	validator  *staticValidator
	creds      *CredentialsService
	resolver   *OrderResolver
	tracking   *TrackingService
	billing    *BillingService
	reconciler *BillingReconciler
	clock      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		shopify:   newFakeShopify(),
		shops:     newMemShops(),
		charges:   &memCharges{},
		sessions:  &memSessions{},
		validator: &staticValidator{valid: true},
		clock:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := zerolog.Nop()
	f.creds = NewCredentialsService(f.shops, f.sessions, f.shopify, prefixCipher{}, []string{"read_orders"}, "https://app.example.com", logger)
	f.resolver = NewOrderResolver(f.shopify, logger)
	f.tracking = NewTrackingService(f.creds, f.validator, f.resolver, f.shopify, logger)
	f.billing = NewBillingService(f.creds, f.charges, f.shopify, testBillingConfig, logger)
	f.reconciler = NewBillingReconciler(f.creds, f.charges, f.shopify, testBillingConfig, logger)

	now := func() time.Time { return f.clock }
	f.creds.nowFunc = now
	f.billing.nowFunc = now
	f.reconciler.nowFunc = now
	return f
}

// install stores a credential as the OAuth callback would
func (f *fixture) install(shop string) {
	_ = f.shops.UpsertShop(context.Background(), &domain.ShopCredential{
		ShopDomain:  shop,
		AccessToken: "enc:shpat_" + shop,
		Scopes:      []string{"read_orders"},
	})
}

// tick advances the fixture clock
func (f *fixture) tick() {
	f.clock = f.clock.Add(time.Second)
}
