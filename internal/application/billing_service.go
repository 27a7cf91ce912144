package application

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/metrics"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// BillingConfig holds the billing settings shared by the orchestrator and the reconciler
type BillingConfig struct {
	Plans     map[domain.ChargeType]domain.Plan
	AppURL    string
	AppHandle string
	Test      bool
}

// ChargeRedirect is where the merchant must go to approve a new charge
type ChargeRedirect struct {
	ConfirmationURL string
	Charge          *domain.Charge
}

// BillingService creates charges and answers billing status queries
type BillingService struct {
	credentials *CredentialsService
	charges     ports.ChargeRepository
	client      ports.ShopifyClient
	config      BillingConfig
	logger      zerolog.Logger
	nowFunc     func() time.Time
}

// NewBillingService creates a new billing service
func NewBillingService(
	credentials *CredentialsService,
	charges ports.ChargeRepository,
	client ports.ShopifyClient,
	config BillingConfig,
	logger zerolog.Logger,
) *BillingService {
	return &BillingService{
		credentials: credentials,
		charges:     charges,
		client:      client,
		config:      config,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// CreateCharge creates an upstream charge for the plan, records it as pending and
// returns the confirmation URL the merchant has to visit
func (s *BillingService) CreateCharge(ctx context.Context, rawShop string, chargeType domain.ChargeType) (*ChargeRedirect, error) {
	plan, ok := s.config.Plans[chargeType]
	if !ok {
		return nil, fmt.Errorf("%w: no plan for charge type %q", domain.ErrInvalidInput, chargeType)
	}

	credential, err := s.credentials.GetCredential(ctx, rawShop)
	if err != nil {
		return nil, err
	}
	shop := credential.ShopDomain
	log := loggerFor(ctx, s.logger)

	req := domain.ChargeRequest{
		Plan:      plan,
		ReturnURL: billingReturnURL(s.config.AppURL, shop, chargeType),
		Test:      s.config.Test,
	}

	var upstream *domain.UpstreamCharge
	switch chargeType {
	case domain.ChargeTypeRecurring:
		upstream, err = s.client.CreateRecurringCharge(ctx, shop, credential.AccessToken, req)
	case domain.ChargeTypeLifetime:
		upstream, err = s.client.CreateOneTimeCharge(ctx, shop, credential.AccessToken, req)
	}
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Str("type", string(chargeType)).Msg("Failed to create charge")
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}
	if upstream.ConfirmationURL == "" {
		return nil, fmt.Errorf("%w: charge %d has no confirmation url", domain.ErrUpstream, upstream.ID)
	}

	now := s.nowFunc()
	charge := &domain.Charge{
		Shop:      shop,
		ChargeID:  upstream.ID,
		Status:    domain.ChargeStatusPending,
		Type:      chargeType,
		Amount:    plan.Price,
		Currency:  plan.Currency,
		TrialDays: plan.TrialDays,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.charges.CreateCharge(ctx, charge); err != nil {
		return nil, fmt.Errorf("failed to save charge: %w", err)
	}

	metrics.ChargesCreatedTotal.WithLabelValues(string(chargeType)).Inc()
	log.Info().
		Str("shop", shop).
		Str("type", string(chargeType)).
		Uint64("charge_id", upstream.ID).
		Bool("test", s.config.Test).
		Msg("Charge created, awaiting merchant approval")

	return &ChargeRedirect{ConfirmationURL: upstream.ConfirmationURL, Charge: charge}, nil
}

// HasActiveBilling reports whether the most recently created charge of the shop is active
func (s *BillingService) HasActiveBilling(ctx context.Context, rawShop string) (bool, error) {
	shop, err := domain.NormalizeShopDomain(rawShop)
	if err != nil {
		return false, err
	}
	latest, err := s.charges.LatestCharge(ctx, shop)
	if err != nil {
		return false, fmt.Errorf("failed to get latest charge: %w", err)
	}
	return latest.IsActive(), nil
}

func billingReturnURL(appURL, shop string, chargeType domain.ChargeType) string {
	q := url.Values{}
	q.Set("shop", shop)
	q.Set("type", string(chargeType))
	return appURL + "/billing/callback?" + q.Encode()
}
