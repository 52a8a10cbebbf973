package model

import (
	"github.com/shopspring/decimal"
)

// DeliveryStatus describes how far an offer line has been delivered.
type DeliveryStatus string

// Delivery status constants.
const (
	StatusPending       DeliveryStatus = "PENDING"
	StatusPartial       DeliveryStatus = "PARTIAL"
	StatusComplete      DeliveryStatus = "COMPLETE"
	StatusOverDelivered DeliveryStatus = "OVER_DELIVERED"
)

// OfferLine is an offer item annotated with everything delivered against it.
type OfferLine struct {
	Item                LineItem        `json:"item"`
	MatchedInvoiceItems []LineItem      `json:"matched_invoice_items"` // processing order
	DeliveredQuantity   decimal.Decimal `json:"delivered_quantity"`
	Status              DeliveryStatus  `json:"status"`
	Index               int             `json:"index"`          // position in the offer
	QuantityKnown       bool            `json:"quantity_known"` // offer quantity and every matched quantity were present
}

// InvoiceDocumentCount returns how many distinct invoices contributed items.
func (l OfferLine) InvoiceDocumentCount() int {
	seen := make(map[string]struct{}, len(l.MatchedInvoiceItems))
	for _, item := range l.MatchedInvoiceItems {
		seen[item.SourceDocumentID] = struct{}{}
	}
	return len(seen)
}

// ExtraReason explains why an invoice item was not matched.
type ExtraReason string

// Extra reason constants.
const (
	ReasonUnmatched ExtraReason = "unmatched"
	ReasonUnkeyable ExtraReason = "unkeyable"
)

// ExtraInvoiceItem is an invoice item that matched no offer line.
type ExtraInvoiceItem struct {
	Reason ExtraReason `json:"reason"`
	Item   LineItem    `json:"item"`
}
