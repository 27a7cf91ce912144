package entity

import (
	"time"

	"shopify-order-tracking/internal/domain"

	"github.com/shopspring/decimal"
)

// MongoChargeDoc represents a billing charge in MongoDB
type MongoChargeDoc struct {
	ID        string    `bson:"_id"`
	Shop      string    `bson:"shop"`
	ChargeID  int64     `bson:"chargeId"`
	Status    string    `bson:"status"`
	Type      string    `bson:"type"`
	Amount    string    `bson:"amount"`
	Currency  string    `bson:"currency"`
	TrialDays int       `bson:"trialDays"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoChargeDoc) ToDomain() *domain.Charge {
	// amount is written by MongoChargeDocFromDomain, a parse failure means a hand-edited row
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	return &domain.Charge{
		ID:        d.ID,
		Shop:      d.Shop,
		ChargeID:  uint64(d.ChargeID),
		Status:    domain.ChargeStatus(d.Status),
		Type:      domain.ChargeType(d.Type),
		Amount:    amount,
		Currency:  d.Currency,
		TrialDays: d.TrialDays,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoChargeDocFromDomain converts a domain entity to a MongoDB document
func MongoChargeDocFromDomain(charge *domain.Charge) *MongoChargeDoc {
	return &MongoChargeDoc{
		ID:        charge.ID,
		Shop:      charge.Shop,
		ChargeID:  int64(charge.ChargeID),
		Status:    string(charge.Status),
		Type:      string(charge.Type),
		Amount:    charge.Amount.String(),
		Currency:  charge.Currency,
		TrialDays: charge.TrialDays,
		CreatedAt: charge.CreatedAt,
		UpdatedAt: charge.UpdatedAt,
	}
}
