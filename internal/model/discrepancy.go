package model

import (
	"github.com/shopspring/decimal"
)

// DiscrepancyKind classifies a difference between offer and invoices.
type DiscrepancyKind string

// Discrepancy kinds.
const (
	KindQuantityMismatch        DiscrepancyKind = "QUANTITY_MISMATCH"
	KindPriceMismatch           DiscrepancyKind = "PRICE_MISMATCH"
	KindMissingItem             DiscrepancyKind = "MISSING_ITEM"
	KindExtraItem               DiscrepancyKind = "EXTRA_ITEM"
	KindPartialDelivery         DiscrepancyKind = "PARTIAL_DELIVERY"
	KindExtractionInconsistency DiscrepancyKind = "EXTRACTION_INCONSISTENCY"
)

// AllDiscrepancyKinds lists every kind in reporting order.
var AllDiscrepancyKinds = []DiscrepancyKind{
	KindMissingItem,
	KindQuantityMismatch,
	KindPartialDelivery,
	KindPriceMismatch,
	KindExtraItem,
	KindExtractionInconsistency,
}

// Severity ranks how far a discrepancy is from acceptable.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank orders severities from LOW (1) to HIGH (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Discrepancy is one reported difference. OfferLineRef is nil for extra items.
type Discrepancy struct {
	OfferLineRef *int                `json:"offer_line_ref,omitempty"`
	ItemCode     string              `json:"item_code,omitempty"`
	Description  string              `json:"description,omitempty"`
	Kind         DiscrepancyKind     `json:"kind"`
	Severity     Severity            `json:"severity"`
	Message      string              `json:"message"`
	DocumentID   string              `json:"document_id,omitempty"`
	Expected     decimal.NullDecimal `json:"expected"`
	Actual       decimal.NullDecimal `json:"actual"`
	Delta        decimal.NullDecimal `json:"delta"`
}
