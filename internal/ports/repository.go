package ports

import (
	"context"

	"shopify-order-tracking/internal/domain"
)

// ShopRepository persists one access token per shop domain.
// Lookups return (nil, nil) when the shop is unknown.
type ShopRepository interface {
	GetShop(ctx context.Context, shopDomain string) (*domain.ShopCredential, error)
	// UpsertShop inserts or replaces the credential in a single atomic write
	UpsertShop(ctx context.Context, shop *domain.ShopCredential) error
	// DeleteShop returns the number of rows removed; zero is not an error
	DeleteShop(ctx context.Context, shopDomain string) (int64, error)
}

// ChargeRepository persists billing charges.
// Lookups return (nil, nil) when nothing matches.
type ChargeRepository interface {
	CreateCharge(ctx context.Context, charge *domain.Charge) error
	GetChargeByChargeID(ctx context.Context, chargeID uint64) (*domain.Charge, error)

	// LatestCharge returns the most recently created charge of any type
	LatestCharge(ctx context.Context, shopDomain string) (*domain.Charge, error)

	// LatestPendingCharge returns the most recently created pending charge of the given type
	LatestPendingCharge(ctx context.Context, shopDomain string, chargeType domain.ChargeType) (*domain.Charge, error)

	// UpdateChargeStatus returns the number of rows matched
	UpdateChargeStatus(ctx context.Context, chargeID uint64, status domain.ChargeStatus) (int64, error)

	DeleteChargesForShop(ctx context.Context, shopDomain string) (int64, error)
}

// SessionStore keeps OAuth state between /auth and /callback
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	// ConsumeSession returns and removes the session; (nil, nil) when unknown or expired
	ConsumeSession(ctx context.Context, state string) (*domain.Session, error)
}

// TokenCipher encrypts access tokens before they reach a repository
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
