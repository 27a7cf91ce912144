package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-order-tracking/internal/domain"
	"shopify-order-tracking/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements ShopRepository and ChargeRepository using MongoDB
type MongoRepository struct {
	shopsCollection   *mongo.Collection
	chargesCollection *mongo.Collection
	nowFunc           func() time.Time
}

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		shopsCollection:   db.Collection("shops"),
		chargesCollection: db.Collection("charges"),
		nowFunc:           time.Now,
	}
}

// EnsureIndexes creates the unique and lookup indexes both collections rely on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.shopsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shop", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create shops index: %w", err)
	}

	_, err = r.chargesCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chargeId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "shop", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create charges indexes: %w", err)
	}
	return nil
}

// Shops

// UpsertShop saves or replaces the credential for a shop
func (r *MongoRepository) UpsertShop(ctx context.Context, shop *domain.ShopCredential) error {
	now := r.nowFunc()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop": shop.ShopDomain}
	update := bson.M{
		"$set": bson.M{
			"accessToken": shop.AccessToken,
			"scopes":      shop.Scopes,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	_, err := r.shopsCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}

	return nil
}

// GetShop retrieves a shop by domain
func (r *MongoRepository) GetShop(ctx context.Context, shopDomain string) (*domain.ShopCredential, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"shop": shopDomain}

	err := r.shopsCollection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return doc.ToDomain(), nil
}

// DeleteShop removes the credential for a shop
func (r *MongoRepository) DeleteShop(ctx context.Context, shopDomain string) (int64, error) {
	res, err := r.shopsCollection.DeleteOne(ctx, bson.M{"shop": shopDomain})
	if err != nil {
		return 0, fmt.Errorf("failed to delete shop: %w", err)
	}
	return res.DeletedCount, nil
}

// Charges

// CreateCharge inserts a new charge row
func (r *MongoRepository) CreateCharge(ctx context.Context, charge *domain.Charge) error {
	if charge.ID == "" {
		charge.ID = newRowID()
	}
	now := r.nowFunc()
	if charge.CreatedAt.IsZero() {
		charge.CreatedAt = now
	}
	if charge.UpdatedAt.IsZero() {
		charge.UpdatedAt = charge.CreatedAt
	}

	_, err := r.chargesCollection.InsertOne(ctx, entity.MongoChargeDocFromDomain(charge))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: charge %d already recorded", domain.ErrInvalidInput, charge.ChargeID)
	}
	if err != nil {
		return fmt.Errorf("failed to create charge: %w", err)
	}
	return nil
}

// GetChargeByChargeID retrieves a charge by its Shopify id
func (r *MongoRepository) GetChargeByChargeID(ctx context.Context, chargeID uint64) (*domain.Charge, error) {
	return r.findCharge(ctx, bson.M{"chargeId": int64(chargeID)})
}

// LatestCharge retrieves the most recently created charge for a shop
func (r *MongoRepository) LatestCharge(ctx context.Context, shopDomain string) (*domain.Charge, error) {
	return r.findCharge(ctx, bson.M{"shop": shopDomain})
}

// LatestPendingCharge retrieves the most recently created pending charge of a type
func (r *MongoRepository) LatestPendingCharge(ctx context.Context, shopDomain string, chargeType domain.ChargeType) (*domain.Charge, error) {
	return r.findCharge(ctx, bson.M{
		"shop":   shopDomain,
		"type":   string(chargeType),
		"status": string(domain.ChargeStatusPending),
	})
}

func (r *MongoRepository) findCharge(ctx context.Context, filter bson.M) (*domain.Charge, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "chargeId", Value: -1},
	})

	var doc entity.MongoChargeDoc
	err := r.chargesCollection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}
	return doc.ToDomain(), nil
}

// UpdateChargeStatus sets the status of a charge and returns how many rows matched
func (r *MongoRepository) UpdateChargeStatus(ctx context.Context, chargeID uint64, status domain.ChargeStatus) (int64, error) {
	filter := bson.M{"chargeId": int64(chargeID)}
	update := bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedAt": r.nowFunc(),
	}}

	res, err := r.chargesCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to update charge status: %w", err)
	}
	return res.MatchedCount, nil
}

// DeleteChargesForShop removes every charge recorded for a shop
func (r *MongoRepository) DeleteChargesForShop(ctx context.Context, shopDomain string) (int64, error) {
	res, err := r.chargesCollection.DeleteMany(ctx, bson.M{"shop": shopDomain})
	if err != nil {
		return 0, fmt.Errorf("failed to delete charges: %w", err)
	}
	return res.DeletedCount, nil
}
