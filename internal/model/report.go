package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus is the overall outcome of a reconciliation run.
type ReportStatus string

// Report status constants.
const (
	ReportMatch              ReportStatus = "MATCH"
	ReportDiscrepanciesFound ReportStatus = "DISCREPANCIES_FOUND"
)

// LineOutcome pairs an aggregated offer line with what was found wrong with it.
type LineOutcome struct {
	Discrepancies []Discrepancy `json:"discrepancies"`
	Line          OfferLine     `json:"line"`
}

// Matched reports whether the line came out without any discrepancy.
func (o LineOutcome) Matched() bool {
	return len(o.Discrepancies) == 0
}

// ReportSummary carries aggregate numbers for the report header.
type ReportSummary struct {
	TotalQuantityDifference decimal.Decimal `json:"total_quantity_difference"`
	TotalPriceDifference    decimal.Decimal `json:"total_price_difference"`
	TotalLines              int             `json:"total_lines"`
	MatchedLines            int             `json:"matched_lines"`
	InvoiceItems            int             `json:"invoice_items"`
}

// ComparisonReport is the sole output of a reconciliation run.
type ComparisonReport struct {
	GeneratedAt   time.Time               `json:"generated_at"`
	Counts        map[DiscrepancyKind]int `json:"counts"`
	ID            string                  `json:"id"`
	OfferID       string                  `json:"offer_id"`
	Status        ReportStatus            `json:"status"`
	InvoiceIDs    []string                `json:"invoice_ids"`
	Lines         []LineOutcome           `json:"lines"`
	Extras        []ExtraInvoiceItem      `json:"extras"`
	Discrepancies []Discrepancy           `json:"discrepancies"`
	RowErrors     []RowError              `json:"row_errors"`
	Notes         []string                `json:"notes"`
	Summary       ReportSummary           `json:"summary"`
}

// Count returns how many discrepancies of kind the report holds.
func (r *ComparisonReport) Count(kind DiscrepancyKind) int {
	if r == nil || r.Counts == nil {
		return 0
	}
	return r.Counts[kind]
}

// HasDiscrepancies reports whether the run found anything to act on.
func (r *ComparisonReport) HasDiscrepancies() bool {
	return r != nil && r.Status == ReportDiscrepanciesFound
}
