package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// OrderReference is what a merchant or customer types to identify an order:
// either the numeric Shopify order id or a display name such as "#1002".
type OrderReference struct {
	Raw     string
	Numeric bool
	// Bare is Raw with its display prefix removed ("#1002" -> "1002")
	Bare string
}

// ParseOrderReference classifies a raw order reference
func ParseOrderReference(raw string) (OrderReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OrderReference{}, fmt.Errorf("%w: order_id is required", ErrInvalidInput)
	}

	if isDigits(raw) {
		return OrderReference{Raw: raw, Numeric: true, Bare: raw}, nil
	}

	bare := strings.TrimLeftFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return OrderReference{Raw: raw, Bare: bare}, nil
}

// NumericID returns the order id of a numeric reference
func (r OrderReference) NumericID() (uint64, error) {
	if !r.Numeric {
		return 0, fmt.Errorf("%w: %q is not a numeric order id", ErrInvalidInput, r.Raw)
	}
	id, err := strconv.ParseUint(r.Raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidInput, r.Raw)
	}
	return id, nil
}

// BareNumber returns the bare candidate parsed as an order number, if it is one
func (r OrderReference) BareNumber() (int, bool) {
	if !isDigits(r.Bare) {
		return 0, false
	}
	n, err := strconv.Atoi(r.Bare)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// OrderSummary is the restricted field set fetched while searching for an order
type OrderSummary struct {
	ID          uint64
	Name        string
	OrderNumber int
}

// Fulfillment is the tracking-relevant part of an upstream fulfillment
type Fulfillment struct {
	ID              uint64
	Status          string
	TrackingCompany string
	TrackingNumber  string
	TrackingNumbers []string
	TrackingURL     string
	TrackingURLs    []string
}

// EffectiveTrackingNumber falls back to the first of TrackingNumbers
func (f Fulfillment) EffectiveTrackingNumber() string {
	if f.TrackingNumber != "" {
		return f.TrackingNumber
	}
	for _, n := range f.TrackingNumbers {
		if n != "" {
			return n
		}
	}
	return ""
}

// EffectiveTrackingURL falls back to the first of TrackingURLs
func (f Fulfillment) EffectiveTrackingURL() string {
	if f.TrackingURL != "" {
		return f.TrackingURL
	}
	for _, u := range f.TrackingURLs {
		if u != "" {
			return u
		}
	}
	return ""
}

// OrderDetails is an order together with its fulfillments, in upstream order
type OrderDetails struct {
	ID           uint64
	Name         string
	Fulfillments []Fulfillment
}

// TrackingRecord holds the tracking fields of a single fulfillment. Any of them may be empty.
type TrackingRecord struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
}

// IsEmpty reports whether none of the tracking fields are set
func (r TrackingRecord) IsEmpty() bool {
	return r.TrackingNumber == "" && r.TrackingCompany == "" && r.TrackingURL == ""
}

// TrackingStatus is the outcome class of a tracking lookup
type TrackingStatus string

const (
	TrackingFound         TrackingStatus = "found"
	TrackingOrderNotFound TrackingStatus = "order_not_found"
	TrackingNotDispatched TrackingStatus = "not_dispatched"
	TrackingNoInfo        TrackingStatus = "no_tracking_info"
)

// Messages returned to the storefront widget for soft outcomes
const (
	MessageOrderNotFound = "Order not found"
	MessageNotDispatched = "No tracking info found. The order may not have been dispatched yet."
	MessageNoTrackingYet = "No tracking info found for this order yet."
)

// TrackingOutcome is the result of a lookup that reached a definitive answer
type TrackingOutcome struct {
	Status  TrackingStatus
	OrderID uint64
	Record  *TrackingRecord
	Message string
}
