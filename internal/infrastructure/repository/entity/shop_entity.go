package entity

import (
	"time"

	"shopify-order-tracking/internal/domain"
)

// MongoShopDoc represents an installed shop in MongoDB
type MongoShopDoc struct {
	Shop        string    `bson:"shop"`
	AccessToken string    `bson:"accessToken"`
	Scopes      []string  `bson:"scopes"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.ShopCredential {
	return &domain.ShopCredential{
		ShopDomain:  d.Shop,
		AccessToken: d.AccessToken,
		Scopes:      d.Scopes,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
