package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Workbook sheet names.
const (
	SheetLines         = "Lines"
	SheetDiscrepancies = "Discrepancies"
	SheetExtras        = "Extras"
	SheetSkippedRows   = "Skipped Rows"
)

// WriteXLSX writes report as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, report *model.ComparisonReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetLines); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetDiscrepancies, SheetExtras, SheetSkippedRows} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	linesSheet := newSheetWriter(f, SheetLines,
		"#", "Item Code", "Description", "Ordered", "Unit Price", "Delivered", "Status", "Invoices", "Discrepancies")
	for _, outcome := range report.Lines {
		line := outcome.Line
		linesSheet.row(
			line.Index+1,
			line.Item.ItemCode,
			line.Item.Description,
			cellValue(line.Item.Quantity),
			cellValue(line.Item.UnitPrice),
			line.DeliveredQuantity.InexactFloat64(),
			string(line.Status),
			line.InvoiceDocumentCount(),
			len(outcome.Discrepancies),
		)
	}

	discrepancySheet := newSheetWriter(f, SheetDiscrepancies,
		"Offer Line", "Kind", "Severity", "Item Code", "Description", "Document", "Expected", "Actual", "Delta", "Message")
	for _, d := range report.Discrepancies {
		var ref any
		if d.OfferLineRef != nil {
			ref = *d.OfferLineRef + 1
		}
		discrepancySheet.row(
			ref,
			string(d.Kind),
			string(d.Severity),
			d.ItemCode,
			d.Description,
			d.DocumentID,
			cellValue(d.Expected),
			cellValue(d.Actual),
			cellValue(d.Delta),
			d.Message,
		)
	}

	extrasSheet := newSheetWriter(f, SheetExtras,
		"Document", "Row", "Item Code", "Description", "Quantity", "Unit Price", "Total", "Reason")
	for _, extra := range report.Extras {
		item := extra.Item
		extrasSheet.row(
			item.SourceDocumentID,
			item.SourceRow,
			item.ItemCode,
			item.Description,
			cellValue(item.Quantity),
			cellValue(item.UnitPrice),
			cellValue(item.TotalPrice),
			string(extra.Reason),
		)
	}

	skippedSheet := newSheetWriter(f, SheetSkippedRows, "Document", "Row", "Error")
	for _, rowErr := range report.RowErrors {
		skippedSheet.row(rowErr.DocumentID, rowErr.Row, rowErr.Message)
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetLines, "C", "C", 40)
	_ = f.SetColWidth(SheetDiscrepancies, "B", "B", 26)
	_ = f.SetColWidth(SheetDiscrepancies, "J", "J", 60)
	_ = f.SetColWidth(SheetExtras, "D", "D", 40)
	_ = f.SetColWidth(SheetSkippedRows, "C", "C", 80)

	for _, s := range []*sheetWriter{linesSheet, discrepancySheet, extrasSheet, skippedSheet} {
		if s.err != nil {
			return fmt.Errorf("failed to fill sheet %s: %w", s.name, s.err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

type sheetWriter struct {
	err  error
	f    *excelize.File
	name string
	next int
}

func newSheetWriter(f *excelize.File, name string, headers ...string) *sheetWriter {
	s := &sheetWriter{f: f, name: name, next: 1}
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	s.row(values...)
	return s
}

// row writes values into the next free row. The first error sticks.
func (s *sheetWriter) row(values ...any) {
	if s.err != nil {
		return
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, s.next)
		if err != nil {
			s.err = err
			return
		}
		if err := s.f.SetCellValue(s.name, cell, v); err != nil {
			s.err = err
			return
		}
	}
	s.next++
}

// cellValue keeps absent numbers as empty cells.
func cellValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
