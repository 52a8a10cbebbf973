package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/matcher"
	"github.com/Veraticus/offer-reconciler/internal/matchkey"
)

// QuantityMode selects how the quantity tolerance is interpreted.
type QuantityMode string

// Quantity tolerance modes.
const (
	QuantityAbsolute QuantityMode = "absolute"
	QuantityRelative QuantityMode = "relative"
)

// SeverityBands maps a deviation to a severity. The deviation is divided by
// the active relative tolerance, or by Floor when no relative tolerance applies.
type SeverityBands struct {
	Floor  decimal.Decimal
	Medium decimal.Decimal // ratio above which severity is MEDIUM
	High   decimal.Decimal // ratio above which severity is HIGH
}

// Config holds the reconciliation settings. It is passed by value and never
// read from process-wide state.
type Config struct {
	PriceTolerance         decimal.Decimal // relative, 0.02 = 2%
	PriceAbsoluteFallback  decimal.Decimal // used when the expected price is zero
	QuantityTolerance      decimal.Decimal
	TotalTolerance         decimal.Decimal // stored vs derived line total
	Severity               SeverityBands
	QuantityMode           QuantityMode
	TieBreak               matcher.TieBreak
	DescriptionSimilarity  float64
	TrackPartialDeliveries bool
	StrictDisambiguation   bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PriceTolerance:        decimal.RequireFromString("0.02"),
		PriceAbsoluteFallback: decimal.RequireFromString("0.01"),
		QuantityTolerance:     decimal.Zero,
		TotalTolerance:        decimal.RequireFromString("0.01"),
		Severity: SeverityBands{
			Floor:  decimal.RequireFromString("0.05"),
			Medium: decimal.NewFromInt(1),
			High:   decimal.NewFromInt(2),
		},
		QuantityMode:           QuantityAbsolute,
		TieBreak:               matcher.TieBreakFirstUnfilled,
		DescriptionSimilarity:  matchkey.DefaultThreshold,
		TrackPartialDeliveries: true,
	}
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	for _, v := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"price tolerance", c.PriceTolerance},
		{"price absolute fallback", c.PriceAbsoluteFallback},
		{"quantity tolerance", c.QuantityTolerance},
		{"total tolerance", c.TotalTolerance},
	} {
		if v.value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative, got %s", common.ErrInvalidConfig, v.name, v.value)
		}
	}

	if !c.Severity.Floor.IsPositive() {
		return fmt.Errorf("%w: severity floor must be positive", common.ErrInvalidConfig)
	}
	if c.Severity.Medium.IsNegative() || c.Severity.High.LessThan(c.Severity.Medium) {
		return fmt.Errorf("%w: severity bands must satisfy 0 <= medium <= high", common.ErrInvalidConfig)
	}
	if c.QuantityMode != QuantityAbsolute && c.QuantityMode != QuantityRelative {
		return fmt.Errorf("%w: unknown quantity tolerance mode %q", common.ErrInvalidConfig, c.QuantityMode)
	}
	if !c.TieBreak.Valid() {
		return fmt.Errorf("%w: unknown tie-break policy %q", common.ErrInvalidConfig, c.TieBreak)
	}
	if c.DescriptionSimilarity < 0 || c.DescriptionSimilarity > 1 {
		return fmt.Errorf("%w: description similarity must be within [0,1], got %v", common.ErrInvalidConfig, c.DescriptionSimilarity)
	}

	return nil
}
