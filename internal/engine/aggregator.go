package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Aggregate derives offer lines from the offer items and the matcher's
// assignments. Inputs are not modified; the matched items are copied.
// Running it twice over the same assignments yields identical lines.
func Aggregate(offer []model.LineItem, assignments [][]model.LineItem, cmp *Comparator) []model.OfferLine {
	lines := make([]model.OfferLine, len(offer))

	for i, item := range offer {
		var matched []model.LineItem
		if i < len(assignments) {
			matched = append([]model.LineItem(nil), assignments[i]...)
		}

		delivered := decimal.Zero
		known := item.Quantity.Valid
		for _, m := range matched {
			if !m.Quantity.Valid {
				known = false
				continue
			}
			delivered = delivered.Add(m.Quantity.Decimal)
		}
		if delivered.IsNegative() {
			panic(fmt.Sprintf("engine: negative delivered quantity %s on offer line %d", delivered, i))
		}

		lines[i] = model.OfferLine{
			Item:                item,
			Index:               i,
			MatchedInvoiceItems: matched,
			DeliveredQuantity:   delivered,
			QuantityKnown:       known,
			Status:              deliveryStatus(item.Quantity, delivered, cmp),
		}
	}

	return lines
}

func deliveryStatus(ordered decimal.NullDecimal, delivered decimal.Decimal, cmp *Comparator) model.DeliveryStatus {
	switch {
	case delivered.IsZero():
		return model.StatusPending
	case !ordered.Valid:
		return model.StatusPartial
	case cmp.CompareQuantity(ordered.Decimal, delivered).WithinTolerance:
		return model.StatusComplete
	case delivered.LessThan(ordered.Decimal):
		return model.StatusPartial
	default:
		return model.StatusOverDelivered
	}
}
