package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ShopDomainSuffix is the canonical suffix of every shop domain we store
const ShopDomainSuffix = ".myshopify.com"

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ShopCredential is the single live access token for an installed shop
type ShopCredential struct {
	ShopDomain  string    `json:"shop"`
	AccessToken string    `json:"-"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeShopDomain converts user input such as "https://My-Store.myshopify.com/admin"
// or "my-store" into the canonical "my-store.myshopify.com" form.
func NormalizeShopDomain(raw string) (string, error) {
	shop := strings.ToLower(strings.TrimSpace(raw))
	if shop == "" {
		return "", fmt.Errorf("%w: shop is required", ErrInvalidInput)
	}

	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	if i := strings.IndexAny(shop, "/?#"); i >= 0 {
		shop = shop[:i]
	}

	// A bare store handle has no dots at all
	if !strings.Contains(shop, ".") {
		shop += ShopDomainSuffix
	}

	if !shopDomainPattern.MatchString(shop) {
		return "", fmt.Errorf("%w: invalid shop domain %q", ErrInvalidInput, raw)
	}
	return shop, nil
}

// StoreHandle returns the part of a canonical shop domain before ".myshopify.com"
func StoreHandle(shopDomain string) string {
	return strings.TrimSuffix(shopDomain, ShopDomainSuffix)
}
