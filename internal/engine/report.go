package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// ReportMeta carries the run identity that the classifier does not produce.
type ReportMeta struct {
	GeneratedAt  time.Time
	ID           string
	OfferID      string
	InvoiceIDs   []string
	RowErrors    []model.RowError
	Notes        []string
	InvoiceItems int
}

// BuildReport assembles the final report from classified lines and extras.
// The report is MATCH only when there are no discrepancies and no extras.
func BuildReport(meta ReportMeta, lines []model.LineOutcome, extras []model.ExtraInvoiceItem, extraDiscrepancies []model.Discrepancy) *model.ComparisonReport {
	report := &model.ComparisonReport{
		ID:          meta.ID,
		OfferID:     meta.OfferID,
		InvoiceIDs:  append([]string(nil), meta.InvoiceIDs...),
		GeneratedAt: meta.GeneratedAt,
		Lines:       lines,
		Extras:      extras,
		RowErrors:   meta.RowErrors,
		Notes:       meta.Notes,
		Counts:      make(map[model.DiscrepancyKind]int, len(model.AllDiscrepancyKinds)),
	}
	for _, kind := range model.AllDiscrepancyKinds {
		report.Counts[kind] = 0
	}

	for _, line := range lines {
		report.Discrepancies = append(report.Discrepancies, line.Discrepancies...)
	}
	report.Discrepancies = append(report.Discrepancies, extraDiscrepancies...)

	summary := model.ReportSummary{
		TotalLines:              len(lines),
		InvoiceItems:            meta.InvoiceItems,
		TotalQuantityDifference: decimal.Zero,
		TotalPriceDifference:    decimal.Zero,
	}
	for _, line := range lines {
		if line.Matched() {
			summary.MatchedLines++
		}
	}
	for _, d := range report.Discrepancies {
		report.Counts[d.Kind]++
		if !d.Delta.Valid {
			continue
		}
		switch d.Kind {
		case model.KindQuantityMismatch, model.KindMissingItem, model.KindPartialDelivery, model.KindExtraItem:
			summary.TotalQuantityDifference = summary.TotalQuantityDifference.Add(d.Delta.Decimal.Abs())
		case model.KindPriceMismatch:
			summary.TotalPriceDifference = summary.TotalPriceDifference.Add(d.Delta.Decimal.Abs())
		}
	}
	report.Summary = summary

	report.Status = model.ReportMatch
	if len(report.Discrepancies) > 0 || len(extras) > 0 {
		report.Status = model.ReportDiscrepanciesFound
	}

	return report
}
