package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// TextFormatter renders a report for a terminal.
type TextFormatter struct {
	// MaxDescription truncates long descriptions in the line table. Zero
	// disables truncation.
	MaxDescription int
}

// NewTextFormatter creates a formatter with terminal friendly defaults.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{MaxDescription: 40}
}

// Write renders report to w.
func (f *TextFormatter) Write(w io.Writer, report *model.ComparisonReport) error {
	if _, err := io.WriteString(w, f.Format(report)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Format renders report as styled text.
func (f *TextFormatter) Format(report *model.ComparisonReport) string {
	if report == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Offer %s", report.OfferID)))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Invoices: %s", joinOrNone(report.InvoiceIDs))))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Report %s, generated %s", report.ID, report.GeneratedAt.Format(timeLayout))))
	b.WriteString("\n\n")

	if report.HasDiscrepancies() {
		b.WriteString(FormatError(string(report.Status)))
	} else {
		b.WriteString(FormatSuccess(string(report.Status)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d of %d offer lines matched, %d invoice items processed\n",
		report.Summary.MatchedLines, report.Summary.TotalLines, report.Summary.InvoiceItems)

	if !report.Summary.TotalQuantityDifference.IsZero() || !report.Summary.TotalPriceDifference.IsZero() {
		fmt.Fprintf(&b, "Quantity difference %s, price difference %s\n",
			report.Summary.TotalQuantityDifference.String(), report.Summary.TotalPriceDifference.StringFixed(2))
	}

	if counts := f.counts(report); counts != "" {
		b.WriteString(counts)
		b.WriteString("\n")
	}

	if len(report.Lines) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Offer lines"))
		b.WriteString("\n")
		b.WriteString(f.lineTable(report.Lines))
	}

	if len(report.Discrepancies) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Discrepancies"))
		b.WriteString("\n")
		for _, d := range report.Discrepancies {
			b.WriteString(formatDiscrepancy(d))
			b.WriteString("\n")
		}
	}

	if len(report.Extras) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Items not on the offer"))
		b.WriteString("\n")
		for _, extra := range report.Extras {
			item := extra.Item
			fmt.Fprintf(&b, "  %s row %d: %s qty %s (%s)\n",
				item.SourceDocumentID, item.SourceRow, itemLabel(item), nullString(item.Quantity), extra.Reason)
		}
	}

	if len(report.RowErrors) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Items could not be extracted"))
		b.WriteString("\n")
		for _, rowErr := range report.RowErrors {
			b.WriteString("  ")
			b.WriteString(FormatWarning(rowErr.Error()))
			b.WriteString("\n")
		}
	}

	if len(report.Notes) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Notes"))
		b.WriteString("\n")
		for _, note := range report.Notes {
			b.WriteString("  ")
			b.WriteString(FormatInfo(note))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (f *TextFormatter) counts(report *model.ComparisonReport) string {
	var parts []string
	for _, kind := range model.AllDiscrepancyKinds {
		if n := report.Count(kind); n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", kind, n))
		}
	}
	return strings.Join(parts, ", ")
}

func (f *TextFormatter) lineTable(lines []model.LineOutcome) string {
	header := []string{"#", "Code", "Description", "Ordered", "Delivered", "Status", "Issues"}
	rows := make([][]string, 0, len(lines))
	for _, outcome := range lines {
		line := outcome.Line
		issues := "ok"
		if !outcome.Matched() {
			kinds := make([]string, 0, len(outcome.Discrepancies))
			for _, d := range outcome.Discrepancies {
				kinds = append(kinds, string(d.Kind))
			}
			issues = strings.Join(kinds, ", ")
		}
		rows = append(rows, []string{
			strconv.Itoa(line.Index + 1),
			line.Item.ItemCode,
			truncate(line.Item.Description, f.MaxDescription),
			nullString(line.Item.Quantity),
			line.DeliveredQuantity.String(),
			string(line.Status),
			issues,
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	renderRow := func(style lipgloss.Style, cells []string) {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = style.Width(widths[i] + 2).Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, rendered...), " "))
		b.WriteString("\n")
	}

	renderRow(TableHeaderStyle, header)
	for i, row := range rows {
		style := TableCellStyle
		if !lines[i].Matched() {
			style = style.Foreground(ErrorColor)
		}
		renderRow(style, row)
	}
	return b.String()
}

func formatDiscrepancy(d model.Discrepancy) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(SeverityStyle(d.Severity).Render(fmt.Sprintf("[%s]", d.Severity)))
	b.WriteString(" ")
	b.WriteString(BoldStyle.Render(string(d.Kind)))
	if d.OfferLineRef != nil {
		fmt.Fprintf(&b, " line %d", *d.OfferLineRef+1)
	}
	if label := firstNonEmpty(d.ItemCode, d.Description); label != "" {
		fmt.Fprintf(&b, " %s", label)
	}
	fmt.Fprintf(&b, ": expected %s, actual %s, delta %s",
		nullString(d.Expected), nullString(d.Actual), nullString(d.Delta))
	if d.Message != "" {
		b.WriteString("\n    ")
		b.WriteString(SubtleStyle.Render(d.Message))
	}
	return b.String()
}

func itemLabel(item model.LineItem) string {
	switch {
	case item.ItemCode != "" && item.Description != "":
		return item.ItemCode + " " + item.Description
	default:
		return item.Label()
	}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
