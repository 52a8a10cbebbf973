package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Comparison is the outcome of checking one value against its expectation.
// Delta is actual - expected in exact decimal arithmetic.
type Comparison struct {
	Expected        decimal.Decimal
	Actual          decimal.Decimal
	Delta           decimal.Decimal
	Deviation       decimal.Decimal // |delta| / expected, or |delta| when expected is zero
	WithinTolerance bool
}

// Comparator applies the configured price and quantity tolerances.
type Comparator struct {
	cfg Config
}

// NewComparator creates a comparator for cfg.
func NewComparator(cfg Config) *Comparator {
	return &Comparator{cfg: cfg}
}

// ComparePrice applies the relative price tolerance. An expected price of zero
// falls back to the absolute threshold.
func (c *Comparator) ComparePrice(expected, actual decimal.Decimal) Comparison {
	cmp := newComparison(expected, actual)
	if expected.IsZero() {
		cmp.WithinTolerance = cmp.Delta.Abs().LessThanOrEqual(c.cfg.PriceAbsoluteFallback)
		return cmp
	}
	cmp.WithinTolerance = cmp.Delta.Abs().LessThanOrEqual(c.cfg.PriceTolerance.Mul(expected.Abs()))
	return cmp
}

// CompareQuantity applies the quantity tolerance in the configured mode.
func (c *Comparator) CompareQuantity(expected, actual decimal.Decimal) Comparison {
	cmp := newComparison(expected, actual)
	limit := c.cfg.QuantityTolerance
	if c.cfg.QuantityMode == QuantityRelative {
		limit = c.cfg.QuantityTolerance.Mul(expected.Abs())
	}
	cmp.WithinTolerance = cmp.Delta.Abs().LessThanOrEqual(limit)
	return cmp
}

// PriceReference is the relative deviation that counts as one tolerance unit.
func (c *Comparator) PriceReference() decimal.Decimal {
	if c.cfg.PriceTolerance.IsPositive() {
		return c.cfg.PriceTolerance
	}
	return c.cfg.Severity.Floor
}

// QuantityReference is PriceReference for quantities.
func (c *Comparator) QuantityReference() decimal.Decimal {
	if c.cfg.QuantityMode == QuantityRelative && c.cfg.QuantityTolerance.IsPositive() {
		return c.cfg.QuantityTolerance
	}
	return c.cfg.Severity.Floor
}

// Severity bands a deviation against reference. It is monotonic in deviation.
func (c *Comparator) Severity(deviation, reference decimal.Decimal) model.Severity {
	ratio := deviation.Div(reference)
	switch {
	case ratio.GreaterThan(c.cfg.Severity.High):
		return model.SeverityHigh
	case ratio.GreaterThan(c.cfg.Severity.Medium):
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func newComparison(expected, actual decimal.Decimal) Comparison {
	delta := actual.Sub(expected)
	deviation := delta.Abs()
	if !expected.IsZero() {
		deviation = deviation.Div(expected.Abs())
	}
	return Comparison{
		Expected:  expected,
		Actual:    actual,
		Delta:     delta,
		Deviation: deviation,
	}
}
