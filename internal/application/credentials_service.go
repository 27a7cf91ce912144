package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/ports"

	"github.com/rs/zerolog"
)

// CredentialsService owns the OAuth install flow and the per-shop access tokens
type CredentialsService struct {
	shopRepo      ports.ShopRepository
	sessions      ports.SessionStore
	client        ports.ShopifyClient
	encryptionSvc ports.TokenCipher
	scopes        []string
	appURL        string
	logger        zerolog.Logger
	nowFunc       func() time.Time
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(
	shopRepo ports.ShopRepository,
	sessions ports.SessionStore,
	client ports.ShopifyClient,
	encryptionService ports.TokenCipher,
	scopes []string,
	appURL string,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		shopRepo:      shopRepo,
		sessions:      sessions,
		client:        client,
		encryptionSvc: encryptionService,
		scopes:        scopes,
		appURL:        appURL,
		logger:        logger,
		nowFunc:       time.Now,
	}
}

// BeginInstall stores a fresh OAuth state and returns the Shopify authorize URL
func (s *CredentialsService) BeginInstall(ctx context.Context, rawShop string) (string, error) {
	shop, err := domain.NormalizeShopDomain(rawShop)
	if err != nil {
		return "", err
	}

	// Generate random state for CSRF protection
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	now := s.nowFunc()
	session := &domain.Session{
		Shop:      shop,
		State:     state,
		Scopes:    s.scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return s.client.GenerateAuthURL(shop, s.scopes, s.appURL+"/callback", state)
}

// CompleteInstall verifies the OAuth callback, exchanges the code and stores the token
func (s *CredentialsService) CompleteInstall(ctx context.Context, query url.Values) (*domain.ShopCredential, error) {
	log := loggerFor(ctx, s.logger)

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		return nil, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}
	shop, err := domain.NormalizeShopDomain(query.Get("shop"))
	if err != nil {
		return nil, err
	}

	ok, err := s.client.VerifyCallback(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !ok {
		log.Warn().Str("shop", shop).Msg("OAuth callback HMAC mismatch")
		return nil, fmt.Errorf("%w: invalid callback signature", domain.ErrUnauthorized)
	}

	session, err := s.sessions.ConsumeSession(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.Shop != shop {
		log.Warn().Str("shop", shop).Msg("OAuth callback with unknown or foreign state")
		return nil, fmt.Errorf("%w: invalid session", domain.ErrUnauthorized)
	}

	accessToken, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	encryptedToken, err := s.encryptionSvc.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	credential := &domain.ShopCredential{
		ShopDomain:  shop,
		AccessToken: encryptedToken,
		Scopes:      session.Scopes,
	}
	if err := s.shopRepo.UpsertShop(ctx, credential); err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("Failed to save shop")
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	log.Info().
		Str("shop", shop).
		Strs("scopes", session.Scopes).
		Msg("Shop installed")

	credential.AccessToken = ""
	return credential, nil
}

// GetCredential returns the credential for a shop with its token decrypted.
// The shop domain is normalized first; a missing shop is domain.ErrShopNotFound.
func (s *CredentialsService) GetCredential(ctx context.Context, rawShop string) (*domain.ShopCredential, error) {
	shop, err := domain.NormalizeShopDomain(rawShop)
	if err != nil {
		return nil, err
	}

	credential, err := s.shopRepo.GetShop(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if credential == nil || credential.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrShopNotFound, shop)
	}

	token, err := s.encryptionSvc.Decrypt(credential.AccessToken)
	if err != nil {
		loggerFor(ctx, s.logger).Error().Err(err).Str("shop", shop).Msg("Failed to decrypt access token")
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	credential.AccessToken = token
	return credential, nil
}

// DeleteShop removes the stored credential. Deleting an unknown shop is not an error.
func (s *CredentialsService) DeleteShop(ctx context.Context, rawShop string) (int64, error) {
	shop, err := domain.NormalizeShopDomain(rawShop)
	if err != nil {
		return 0, err
	}
	n, err := s.shopRepo.DeleteShop(ctx, shop)
	if err != nil {
		return 0, fmt.Errorf("failed to delete shop: %w", err)
	}
	loggerFor(ctx, s.logger).Info().
		Str("shop", shop).
		Int64("deleted", n).
		Msg("Shop credential deleted")
	return n, nil
}

