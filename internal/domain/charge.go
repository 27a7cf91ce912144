package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChargeStatus is the local lifecycle state of a Charge
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusAccepted  ChargeStatus = "accepted"
	ChargeStatusActive    ChargeStatus = "active"
	ChargeStatusDeclined  ChargeStatus = "declined"
	ChargeStatusCancelled ChargeStatus = "cancelled"
)

// ChargeType distinguishes subscriptions from one-time purchases. It never changes after creation.
type ChargeType string

const (
	ChargeTypeRecurring ChargeType = "recurring"
	ChargeTypeLifetime  ChargeType = "lifetime"
)

// ParseChargeType validates a plan kind coming from a query string
func ParseChargeType(raw string) (ChargeType, error) {
	switch ChargeType(strings.ToLower(strings.TrimSpace(raw))) {
	case ChargeTypeRecurring:
		return ChargeTypeRecurring, nil
	case ChargeTypeLifetime:
		return ChargeTypeLifetime, nil
	}
	return "", fmt.Errorf("%w: unknown charge type %q", ErrInvalidInput, raw)
}

// Charge is a billing record for one upstream recurring or one-time application charge.
// For a shop, the most recently created Charge decides access.
type Charge struct {
	ID        string          `json:"id"`
	Shop      string          `json:"shop"`
	ChargeID  uint64          `json:"charge_id"`
	Status    ChargeStatus    `json:"status"`
	Type      ChargeType      `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	TrialDays int             `json:"trial_days"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsActive reports whether this charge grants access to the app
func (c *Charge) IsActive() bool {
	return c != nil && c.Status == ChargeStatusActive
}

// IsTerminal reports whether no further status change is allowed on this row
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusActive || s == ChargeStatusDeclined || s == ChargeStatusCancelled
}

// CanTransition reports whether a charge in status s may move to next.
// Writing the same status again is always allowed so repeated callbacks are harmless.
func (s ChargeStatus) CanTransition(next ChargeStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case ChargeStatusPending:
		return next == ChargeStatusAccepted ||
			next == ChargeStatusActive ||
			next == ChargeStatusDeclined ||
			next == ChargeStatusCancelled
	case ChargeStatusAccepted:
		return next == ChargeStatusActive ||
			next == ChargeStatusDeclined ||
			next == ChargeStatusCancelled
	}
	return false
}

// Transition moves the charge to next, enforcing the lifecycle
func (c *Charge) Transition(next ChargeStatus, now time.Time) error {
	if !c.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s for charge %d", ErrInvalidTransition, c.Status, next, c.ChargeID)
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}

// ChargeStatusFromUpstream maps a Shopify charge status onto the local lifecycle.
// Shopify reports abandoned approvals as "expired" and suspended stores as "frozen".
func ChargeStatusFromUpstream(status string) (ChargeStatus, error) {
	switch strings.ToLower(status) {
	case "pending":
		return ChargeStatusPending, nil
	case "accepted":
		return ChargeStatusAccepted, nil
	case "active":
		return ChargeStatusActive, nil
	case "declined", "expired":
		return ChargeStatusDeclined, nil
	case "cancelled", "frozen":
		return ChargeStatusCancelled, nil
	}
	return "", fmt.Errorf("unknown upstream charge status %q", status)
}

// Plan is the fixed price list entry for a ChargeType
type Plan struct {
	Type      ChargeType
	Name      string
	Price     decimal.Decimal
	Currency  string
	TrialDays int
}

// UpstreamCharge is a recurring or one-time application charge as Shopify reports it
type UpstreamCharge struct {
	ID              uint64
	Name            string
	Status          string
	Price           decimal.Decimal
	TrialDays       int
	ConfirmationURL string
	ReturnURL       string
	Test            bool
}

// ChargeRequest is what we send to Shopify when creating a charge
type ChargeRequest struct {
	Plan      Plan
	ReturnURL string
	Test      bool
}
