package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Classifier turns aggregated offer lines and leftover invoice items into
// discrepancies.
type Classifier struct {
	cmp *Comparator
	cfg Config
}

// NewClassifier creates a classifier that judges deltas with cmp.
func NewClassifier(cfg Config, cmp *Comparator) *Classifier {
	return &Classifier{cfg: cfg, cmp: cmp}
}

// ClassifyLine returns the discrepancies of one offer line, or none when the
// line matched.
func (c *Classifier) ClassifyLine(line model.OfferLine) []model.Discrepancy {
	ref := line.Index
	base := model.Discrepancy{
		OfferLineRef: &ref,
		ItemCode:     line.Item.ItemCode,
		Description:  line.Item.Description,
		DocumentID:   line.Item.SourceDocumentID,
	}

	// Without every quantity the line cannot be quantity-compared at all.
	if !line.QuantityKnown {
		d := base
		d.Kind = model.KindExtractionInconsistency
		d.Severity = model.SeverityMedium
		d.Expected = line.Item.Quantity
		d.Actual = decimal.NewNullDecimal(line.DeliveredQuantity)
		d.Message = missingQuantityMessage(line)
		return []model.Discrepancy{d}
	}

	out := c.totalInconsistencies(base, line)

	ordered := line.Item.Quantity.Decimal
	qty := c.cmp.CompareQuantity(ordered, line.DeliveredQuantity)
	quantity := func(kind model.DiscrepancyKind, severity model.Severity, msg string) model.Discrepancy {
		d := base
		d.Kind = kind
		d.Severity = severity
		d.Expected = decimal.NewNullDecimal(ordered)
		d.Actual = decimal.NewNullDecimal(line.DeliveredQuantity)
		d.Delta = decimal.NewNullDecimal(qty.Delta)
		d.Message = msg
		return d
	}
	severity := c.cmp.Severity(qty.Deviation, c.cmp.QuantityReference())

	switch line.Status {
	case model.StatusPending:
		if ordered.IsPositive() {
			out = append(out, quantity(model.KindMissingItem, model.SeverityHigh,
				fmt.Sprintf("%s not delivered: %s ordered", line.Item.Label(), ordered)))
		}

	case model.StatusPartial:
		switch {
		case !c.cfg.TrackPartialDeliveries:
			out = append(out, quantity(model.KindMissingItem, model.SeverityHigh,
				fmt.Sprintf("%s not fully delivered: %s of %s", line.Item.Label(), line.DeliveredQuantity, ordered)))
		case line.InvoiceDocumentCount() >= 2:
			out = append(out, quantity(model.KindPartialDelivery, severity,
				fmt.Sprintf("%s partially delivered across %d invoices: %s of %s",
					line.Item.Label(), line.InvoiceDocumentCount(), line.DeliveredQuantity, ordered)))
		default:
			out = append(out, quantity(model.KindQuantityMismatch, severity,
				fmt.Sprintf("%s quantity short: expected %s, delivered %s", line.Item.Label(), ordered, line.DeliveredQuantity)))
		}

	case model.StatusOverDelivered:
		out = append(out, quantity(model.KindQuantityMismatch, severity,
			fmt.Sprintf("%s over-delivered: expected %s, delivered %s", line.Item.Label(), ordered, line.DeliveredQuantity)))

	case model.StatusComplete:
		if d, ok := c.priceDiscrepancy(base, line); ok {
			out = append(out, d)
		}
	}

	return out
}

// ClassifyExtra reports an invoice item that matched no offer line.
func (c *Classifier) ClassifyExtra(extra model.ExtraInvoiceItem) []model.Discrepancy {
	item := extra.Item
	d := model.Discrepancy{
		ItemCode:    item.ItemCode,
		Description: item.Description,
		DocumentID:  item.SourceDocumentID,
		Kind:        model.KindExtraItem,
		Severity:    model.SeverityMedium,
		Expected:    decimal.NewNullDecimal(decimal.Zero),
		Actual:      item.Quantity,
		Delta:       item.Quantity,
	}
	if extra.Reason == model.ReasonUnkeyable {
		d.Message = fmt.Sprintf("%s row %d: %s could not be matched by code or description", item.SourceDocumentID, item.SourceRow, item.Label())
	} else {
		d.Message = fmt.Sprintf("%s row %d: %s is not part of the offer", item.SourceDocumentID, item.SourceRow, item.Label())
	}

	out := []model.Discrepancy{d}
	if inc, ok := c.totalInconsistency(item); ok {
		out = append(out, inc)
	}
	return out
}

func (c *Classifier) priceDiscrepancy(base model.Discrepancy, line model.OfferLine) (model.Discrepancy, bool) {
	if !line.Item.UnitPrice.Valid {
		return model.Discrepancy{}, false
	}
	actual, ok := weightedUnitPrice(line.MatchedInvoiceItems)
	if !ok {
		return model.Discrepancy{}, false
	}

	price := c.cmp.ComparePrice(line.Item.UnitPrice.Decimal, actual)
	if price.WithinTolerance {
		return model.Discrepancy{}, false
	}

	d := base
	d.Kind = model.KindPriceMismatch
	d.Severity = c.cmp.Severity(price.Deviation, c.cmp.PriceReference())
	d.Expected = decimal.NewNullDecimal(price.Expected)
	d.Actual = decimal.NewNullDecimal(price.Actual)
	d.Delta = decimal.NewNullDecimal(price.Delta)
	d.Message = fmt.Sprintf("%s unit price differs: offered %s, invoiced %s", line.Item.Label(), price.Expected, price.Actual)
	return d, true
}

func (c *Classifier) totalInconsistencies(base model.Discrepancy, line model.OfferLine) []model.Discrepancy {
	var out []model.Discrepancy
	items := append([]model.LineItem{line.Item}, line.MatchedInvoiceItems...)
	for _, item := range items {
		if inc, ok := c.totalInconsistency(item); ok {
			inc.OfferLineRef = base.OfferLineRef
			out = append(out, inc)
		}
	}
	return out
}

func (c *Classifier) totalInconsistency(item model.LineItem) (model.Discrepancy, bool) {
	if item.TotalConsistent(c.cfg.TotalTolerance) {
		return model.Discrepancy{}, false
	}

	derived := item.Quantity.Decimal.Mul(item.UnitPrice.Decimal)
	stored := item.TotalPrice.Decimal
	return model.Discrepancy{
		ItemCode:    item.ItemCode,
		Description: item.Description,
		DocumentID:  item.SourceDocumentID,
		Kind:        model.KindExtractionInconsistency,
		Severity:    model.SeverityMedium,
		Expected:    decimal.NewNullDecimal(derived),
		Actual:      decimal.NewNullDecimal(stored),
		Delta:       decimal.NewNullDecimal(stored.Sub(derived)),
		Message: fmt.Sprintf("%s row %d: total %s disagrees with %s x %s",
			item.SourceDocumentID, item.SourceRow, stored, item.Quantity.Decimal, item.UnitPrice.Decimal),
	}, true
}

// weightedUnitPrice averages the invoiced unit prices weighted by quantity.
// Items without a price are ignored; identical prices are returned as is.
func weightedUnitPrice(items []model.LineItem) (decimal.Decimal, bool) {
	var priced []model.LineItem
	for _, item := range items {
		if item.UnitPrice.Valid && item.Quantity.Valid {
			priced = append(priced, item)
		}
	}
	if len(priced) == 0 {
		return decimal.Zero, false
	}

	first := priced[0].UnitPrice.Decimal
	uniform := true
	weighted, total := decimal.Zero, decimal.Zero
	for _, item := range priced {
		if !item.UnitPrice.Decimal.Equal(first) {
			uniform = false
		}
		weighted = weighted.Add(item.Quantity.Decimal.Mul(item.UnitPrice.Decimal))
		total = total.Add(item.Quantity.Decimal)
	}

	if uniform {
		return first, true
	}
	if total.IsZero() {
		return decimal.Zero, false
	}
	return weighted.Div(total), true
}

func missingQuantityMessage(line model.OfferLine) string {
	if !line.Item.Quantity.Valid {
		return fmt.Sprintf("%s has no quantity on the offer", line.Item.Label())
	}
	for _, item := range line.MatchedInvoiceItems {
		if !item.Quantity.Valid {
			return fmt.Sprintf("%s row %d: %s has no quantity", item.SourceDocumentID, item.SourceRow, item.Label())
		}
	}
	return fmt.Sprintf("%s quantity could not be determined", line.Item.Label())
}
