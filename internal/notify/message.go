package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

type slackMessage struct {
	Channel string  `json:"channel,omitempty"`
	Text    string  `json:"text"`
	Blocks  []block `json:"blocks"`
}

type block struct {
	Text     *textObject  `json:"text,omitempty"`
	Type     string       `json:"type"`
	Elements []textObject `json:"elements,omitempty"`
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func header(text string) block {
	return block{Type: "header", Text: &textObject{Type: "plain_text", Text: text}}
}

func section(markdown string) block {
	return block{Type: "section", Text: &textObject{Type: "mrkdwn", Text: markdown}}
}

func (n *SlackNotifier) reportMessage(report *model.ComparisonReport) slackMessage {
	blocks := []block{
		header("📊 Offer Comparison Results"),
		section(filesText(report)),
		section(summaryText(report)),
		{Type: "divider"},
	}

	if len(report.Discrepancies) > 0 {
		blocks = append(blocks, header("📝 Detailed Discrepancies"))
		for i, d := range report.Discrepancies {
			if i == maxDetailBlocks {
				blocks = append(blocks, section(fmt.Sprintf("_and %d more_", len(report.Discrepancies)-maxDetailBlocks)))
				break
			}
			blocks = append(blocks, section(discrepancyText(d)))
		}
	}

	if len(report.RowErrors) > 0 {
		blocks = append(blocks, section(fmt.Sprintf("⚠️ %d rows could not be extracted", len(report.RowErrors))))
	}

	blocks = append(blocks, block{
		Type: "context",
		Elements: []textObject{{
			Type: "mrkdwn",
			Text: "Comparison completed at " + report.GeneratedAt.Format("2006-01-02 15:04:05"),
		}},
	})

	return slackMessage{
		Channel: n.cfg.Channel,
		Text:    fmt.Sprintf("Offer %s: %s", report.OfferID, report.Status),
		Blocks:  blocks,
	}
}

func filesText(report *model.ComparisonReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Offer:* %s\n*Invoices:*", report.OfferID)
	for _, id := range report.InvoiceIDs {
		fmt.Fprintf(&b, "\n• %s", id)
	}
	return b.String()
}

func summaryText(report *model.ComparisonReport) string {
	emoji := "✅"
	if report.HasDiscrepancies() {
		emoji = "⚠️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Summary*\n", emoji)
	fmt.Fprintf(&b, "• Total Items: %d\n", report.Summary.TotalLines)
	fmt.Fprintf(&b, "• Matches: %d\n", report.Summary.MatchedLines)

	if n := report.Count(model.KindQuantityMismatch) + report.Count(model.KindPartialDelivery); n > 0 {
		fmt.Fprintf(&b, "• Quantity Mismatches: %d\n", n)
		fmt.Fprintf(&b, "  Total Quantity Difference: %s\n", report.Summary.TotalQuantityDifference.String())
	}
	if n := report.Count(model.KindPriceMismatch); n > 0 {
		fmt.Fprintf(&b, "• Price Mismatches: %d\n", n)
		fmt.Fprintf(&b, "  Total Price Difference: %s\n", formatAmount(report.Summary.TotalPriceDifference))
	}
	if n := report.Count(model.KindMissingItem); n > 0 {
		fmt.Fprintf(&b, "• Missing Items: %d\n", n)
	}
	if n := len(report.Extras); n > 0 {
		fmt.Fprintf(&b, "• Extra Items: %d\n", n)
	}
	if n := report.Count(model.KindExtractionInconsistency); n > 0 {
		fmt.Fprintf(&b, "• Extraction Inconsistencies: %d\n", n)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

var kindEmoji = map[model.DiscrepancyKind]string{
	model.KindQuantityMismatch:        "🔢",
	model.KindPartialDelivery:         "🚚",
	model.KindPriceMismatch:           "💰",
	model.KindMissingItem:             "❌",
	model.KindExtraItem:               "➕",
	model.KindExtractionInconsistency: "❓",
}

func discrepancyText(d model.Discrepancy) string {
	label := d.ItemCode
	if label == "" {
		label = d.Description
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* (%s, %s)\n", kindEmoji[d.Kind], label, d.Kind, d.Severity)
	if d.Description != "" && d.Description != label {
		fmt.Fprintf(&b, "_%s_\n", d.Description)
	}

	switch d.Kind {
	case model.KindQuantityMismatch, model.KindPartialDelivery:
		fmt.Fprintf(&b, "• Offered: %s\n• Delivered: %s\n• Difference: %s", nullString(d.Expected), nullString(d.Actual), absString(d))
	case model.KindPriceMismatch:
		fmt.Fprintf(&b, "• Offered Price: %s\n• Invoiced Price: %s\n• Difference: %s",
			nullAmount(d.Expected), nullAmount(d.Actual), nullAmount(abs(d.Delta)))
	case model.KindMissingItem:
		fmt.Fprintf(&b, "• Missing from Invoices\n• Expected Quantity: %s", nullString(d.Expected))
	case model.KindExtraItem:
		fmt.Fprintf(&b, "• Not in Original Offer\n• Delivered Quantity: %s", nullString(d.Actual))
	default:
		b.WriteString(d.Message)
	}
	return b.String()
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return formatAmount(d.Decimal)
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.String()
}

func abs(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Abs())
}

func absString(d model.Discrepancy) string {
	return nullString(abs(d.Delta))
}
