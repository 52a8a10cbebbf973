package model

import (
	"github.com/shopspring/decimal"
)

// LineItem is one priced entry on an offer or invoice.
// It is created once by the normalizer and never modified afterwards.
type LineItem struct {
	ItemCode         string              `json:"item_code,omitempty"`
	Description      string              `json:"description,omitempty"`
	SourceDocumentID string              `json:"source_document_id"`
	Quantity         decimal.NullDecimal `json:"quantity"` // Valid=false when the cell was blank
	UnitPrice        decimal.NullDecimal `json:"unit_price"`
	TotalPrice       decimal.NullDecimal `json:"total_price"`
	SourceRow        int                 `json:"source_row"`
	TotalDerived     bool                `json:"total_derived"` // TotalPrice was computed as Quantity*UnitPrice
}

// HasQuantity reports whether the quantity was present in the source.
func (i LineItem) HasQuantity() bool {
	return i.Quantity.Valid
}

// HasUnitPrice reports whether the unit price was present in the source.
func (i LineItem) HasUnitPrice() bool {
	return i.UnitPrice.Valid
}

// TotalConsistent reports whether a stored total agrees with quantity*unit_price
// within tolerance. Items without a stored total, or without the values needed
// to derive one, are considered consistent.
func (i LineItem) TotalConsistent(tolerance decimal.Decimal) bool {
	if i.TotalDerived || !i.TotalPrice.Valid || !i.Quantity.Valid || !i.UnitPrice.Valid {
		return true
	}
	derived := i.Quantity.Decimal.Mul(i.UnitPrice.Decimal)
	return i.TotalPrice.Decimal.Sub(derived).Abs().LessThanOrEqual(tolerance)
}

// Label returns the most useful human identifier for the item.
func (i LineItem) Label() string {
	if i.ItemCode != "" {
		return i.ItemCode
	}
	return i.Description
}

// MatchKey is the derived lookup identity of a line item.
// It is used only to pair items and never owns them.
type MatchKey struct {
	Code      string
	Signature string
}

// IsZero reports whether the key carries no matching signal at all.
func (k MatchKey) IsZero() bool {
	return k.Code == "" && k.Signature == ""
}
