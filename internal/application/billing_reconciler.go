package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/metrics"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// Billing redirect outcomes, sent to the admin page as ?billing=
const (
	BillingSuccess  = "success"
	BillingDeclined = "declined"
	BillingError    = "error"
)

// CallbackInput is the query of the merchant's return from the Shopify approval page
type CallbackInput struct {
	Shop     string
	Type     string
	ChargeID string
}

// ReconcileResult says where to send the merchant next
type ReconcileResult struct {
	Outcome     string
	RedirectURL string
	Charge      *domain.Charge
}

// BillingReconciler brings the local charge in line with Shopify after the merchant
// approves or declines it. It never fails: every problem becomes a billing=error redirect.
type BillingReconciler struct {
	credentials *CredentialsService
	charges     ports.ChargeRepository
	client      ports.ShopifyClient
	config      BillingConfig
	logger      zerolog.Logger
	nowFunc     func() time.Time
}

// NewBillingReconciler creates a new billing reconciler
func NewBillingReconciler(
	credentials *CredentialsService,
	charges ports.ChargeRepository,
	client ports.ShopifyClient,
	config BillingConfig,
	logger zerolog.Logger,
) *BillingReconciler {
	return &BillingReconciler{
		credentials: credentials,
		charges:     charges,
		client:      client,
		config:      config,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Reconcile queries Shopify for the charge named by the callback, activates accepted
// subscriptions and persists the resulting status
func (r *BillingReconciler) Reconcile(ctx context.Context, in CallbackInput) (result ReconcileResult) {
	log := loggerFor(ctx, r.logger)

	shop, err := domain.NormalizeShopDomain(in.Shop)
	if err != nil {
		log.Warn().Err(err).Str("shop", in.Shop).Msg("Billing callback with unusable shop")
		metrics.ReconciliationsTotal.WithLabelValues(BillingError).Inc()
		return ReconcileResult{Outcome: BillingError, RedirectURL: r.FallbackRedirect()}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("shop", shop).
				Interface("panic", rec).
				Msg("Panic during billing reconciliation")
			result = ReconcileResult{Outcome: BillingError, RedirectURL: r.AdminRedirect(shop, BillingError)}
		}
		metrics.ReconciliationsTotal.WithLabelValues(result.Outcome).Inc()
	}()

	charge, err := r.reconcile(ctx, shop, in)
	if err != nil {
		log.Error().
			Err(err).
			Str("shop", shop).
			Str("charge_id", in.ChargeID).
			Str("type", in.Type).
			Msg("Billing reconciliation failed")
		return ReconcileResult{Outcome: BillingError, RedirectURL: r.AdminRedirect(shop, BillingError)}
	}

	outcome := outcomeFor(charge.Status)
	log.Info().
		Str("shop", shop).
		Uint64("charge_id", charge.ChargeID).
		Str("type", string(charge.Type)).
		Str("status", string(charge.Status)).
		Str("outcome", outcome).
		Msg("Billing callback reconciled")
	return ReconcileResult{Outcome: outcome, RedirectURL: r.AdminRedirect(shop, outcome), Charge: charge}
}

func (r *BillingReconciler) reconcile(ctx context.Context, shop string, in CallbackInput) (*domain.Charge, error) {
	log := loggerFor(ctx, r.logger)

	credential, err := r.credentials.GetCredential(ctx, shop)
	if err != nil {
		return nil, err
	}
	token := credential.AccessToken

	var chargeType domain.ChargeType
	if in.Type != "" {
		if chargeType, err = domain.ParseChargeType(in.Type); err != nil {
			return nil, err
		}
	}

	local, chargeID, err := r.findLocalCharge(ctx, shop, in.ChargeID, chargeType)
	if err != nil {
		return nil, err
	}
	if chargeType == "" {
		chargeType = domain.ChargeTypeRecurring
		if local != nil {
			chargeType = local.Type
		}
	}

	var upstream *domain.UpstreamCharge
	switch chargeType {
	case domain.ChargeTypeRecurring:
		upstream, err = r.client.GetRecurringCharge(ctx, shop, token, chargeID)
	case domain.ChargeTypeLifetime:
		upstream, err = r.client.GetOneTimeCharge(ctx, shop, token, chargeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	status, err := domain.ChargeStatusFromUpstream(upstream.Status)
	if err != nil {
		return nil, err
	}

	// Only subscriptions need an explicit activation; one-time charges settle on approval
	if chargeType == domain.ChargeTypeRecurring && status == domain.ChargeStatusAccepted {
		if _, err := r.client.ActivateRecurringCharge(ctx, shop, token, upstream); err != nil {
			return nil, fmt.Errorf("failed to activate charge: %w", err)
		}
		status = domain.ChargeStatusActive
		log.Info().Str("shop", shop).Uint64("charge_id", chargeID).Msg("Recurring charge activated")
	}

	if local == nil {
		return r.recordUpstreamCharge(ctx, shop, chargeType, status, upstream)
	}
	return r.applyStatus(ctx, local, status)
}

// findLocalCharge returns the charge the callback refers to. With an explicit id the local row
// may be missing; without one the latest pending charge of the type must exist.
func (r *BillingReconciler) findLocalCharge(ctx context.Context, shop, rawChargeID string, chargeType domain.ChargeType) (*domain.Charge, uint64, error) {
	if rawChargeID != "" {
		chargeID, err := strconv.ParseUint(rawChargeID, 10, 64)
		if err != nil || chargeID == 0 {
			return nil, 0, fmt.Errorf("%w: invalid charge_id %q", domain.ErrInvalidInput, rawChargeID)
		}
		local, err := r.charges.GetChargeByChargeID(ctx, chargeID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get charge: %w", err)
		}
		if local != nil && local.Shop != shop {
			return nil, 0, fmt.Errorf("%w: charge %d belongs to another shop", domain.ErrUnauthorized, chargeID)
		}
		if local != nil && chargeType != "" && local.Type != chargeType {
			return nil, 0, fmt.Errorf("%w: charge %d is %s, not %s", domain.ErrInvalidInput, chargeID, local.Type, chargeType)
		}
		return local, chargeID, nil
	}

	if chargeType == "" {
		chargeType = domain.ChargeTypeRecurring
	}
	local, err := r.charges.LatestPendingCharge(ctx, shop, chargeType)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get pending charge: %w", err)
	}
	if local == nil {
		return nil, 0, fmt.Errorf("%w: no pending %s charge for %s", domain.ErrChargeNotFound, chargeType, shop)
	}
	return local, local.ChargeID, nil
}

// applyStatus persists next on an existing row. A transition the lifecycle forbids is not
// written and the stored status stands.
func (r *BillingReconciler) applyStatus(ctx context.Context, charge *domain.Charge, next domain.ChargeStatus) (*domain.Charge, error) {
	if err := charge.Transition(next, r.nowFunc()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			loggerFor(ctx, r.logger).Warn().
				Err(err).
				Str("shop", charge.Shop).
				Uint64("charge_id", charge.ChargeID).
				Msg("Ignoring upstream status that would move a settled charge backwards")
			return charge, nil
		}
		return nil, err
	}

	n, err := r.charges.UpdateChargeStatus(ctx, charge.ChargeID, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update charge status: %w", err)
	}
	if n == 0 {
		loggerFor(ctx, r.logger).Warn().
			Str("shop", charge.Shop).
			Uint64("charge_id", charge.ChargeID).
			Msg("Charge row vanished before its status could be updated")
	}
	return charge, nil
}

// recordUpstreamCharge inserts a row for a charge we only know about from Shopify
func (r *BillingReconciler) recordUpstreamCharge(ctx context.Context, shop string, chargeType domain.ChargeType, status domain.ChargeStatus, upstream *domain.UpstreamCharge) (*domain.Charge, error) {
	plan := r.config.Plans[chargeType]
	trialDays := upstream.TrialDays
	if chargeType == domain.ChargeTypeLifetime {
		trialDays = plan.TrialDays
	}

	now := r.nowFunc()
	charge := &domain.Charge{
		Shop:      shop,
		ChargeID:  upstream.ID,
		Status:    status,
		Type:      chargeType,
		Amount:    upstream.Price,
		Currency:  plan.Currency,
		TrialDays: trialDays,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.charges.CreateCharge(ctx, charge); err != nil {
		return nil, fmt.Errorf("failed to record charge: %w", err)
	}
	loggerFor(ctx, r.logger).Info().
		Str("shop", shop).
		Uint64("charge_id", upstream.ID).
		Str("status", string(status)).
		Msg("Recorded charge that had no local row")
	return charge, nil
}

// AdminRedirect builds the embedded app URL in the Shopify admin with a billing tag
func (r *BillingReconciler) AdminRedirect(shop, outcome string) string {
	q := url.Values{}
	q.Set("billing", outcome)
	return fmt.Sprintf("https://admin.shopify.com/store/%s/apps/%s?%s",
		url.PathEscape(domain.StoreHandle(shop)), url.PathEscape(r.config.AppHandle), q.Encode())
}

// FallbackRedirect is used when the shop is too broken to build an admin URL
func (r *BillingReconciler) FallbackRedirect() string {
	return r.config.AppURL + "/?billing=" + BillingError
}

func outcomeFor(status domain.ChargeStatus) string {
	switch status {
	case domain.ChargeStatusActive, domain.ChargeStatusAccepted:
		return BillingSuccess
	default:
		return BillingDeclined
	}
}
