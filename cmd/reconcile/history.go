package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/report"
	"github.com/Veraticus/offer-reconciler/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent comparisons",
		RunE:  runHistory,
	}

	cmd.Flags().Int("days", 7, "only show comparisons from the last N days (0 for all)")
	cmd.Flags().Int("limit", 20, "maximum number of comparisons to show (0 for all)")
	cmd.Flags().Bool("stats", false, "also show aggregate statistics")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")
	showStats, _ := cmd.Flags().GetBool("stats")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var since *time.Time
	if days > 0 {
		t := time.Now().AddDate(0, 0, -days)
		since = &t
	}

	records, err := store.GetComparisonHistory(ctx, storage.HistoryFilter{Since: since, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, report.FormatInfo("No comparisons recorded"))
		return nil
	}

	fmt.Fprintln(out, report.TitleStyle.Render("Comparison history"))
	for _, rec := range records {
		fmt.Fprintln(out, formatRecord(rec))
	}

	if showStats {
		stats, err := store.GetStatistics(ctx, since)
		if err != nil {
			return fmt.Errorf("failed to load statistics: %w", err)
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, formatStatistics(stats))
	}

	return nil
}

func formatRecord(rec storage.ComparisonRecord) string {
	when := rec.CreatedAt.Local().Format("2006-01-02 15:04")
	invoices := strings.Join(rec.InvoiceIDs, ", ")

	var line string
	switch {
	case rec.Status == storage.RecordError:
		line = report.FormatError(fmt.Sprintf("%s  %s  failed: %s", when, rec.OfferID, rec.ErrorMessage))
	case rec.ReportStatus == model.ReportMatch:
		line = report.FormatSuccess(fmt.Sprintf("%s  %s  %d/%d lines matched", when, rec.OfferID, rec.MatchedLines, rec.TotalLines))
	default:
		var parts []string
		for _, kind := range model.AllDiscrepancyKinds {
			if n := rec.Counts[kind]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s %d", kind, n))
			}
		}
		line = report.FormatWarning(fmt.Sprintf("%s  %s  %d/%d lines matched, %s", when, rec.OfferID, rec.MatchedLines, rec.TotalLines, strings.Join(parts, ", ")))
	}

	detail := fmt.Sprintf("    %s  invoices: %s", rec.ID, invoices)
	if rec.NotificationSent {
		detail += "  (notified)"
	} else if rec.NotificationError != "" {
		detail += "  (notification failed)"
	}
	return line + "\n" + report.SubtleStyle.Render(detail)
}

func formatStatistics(stats *storage.Statistics) string {
	var b strings.Builder
	b.WriteString(report.TitleStyle.Render("Statistics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Comparisons: %d (%d successful, %d failed)\n", stats.TotalComparisons, stats.Successful, stats.Failed)
	fmt.Fprintf(&b, "  Offer lines: %d compared, %d matched\n", stats.LinesCompared, stats.MatchedLines)
	for _, kind := range model.AllDiscrepancyKinds {
		if n := stats.Discrepancies[kind]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", kind, n)
		}
	}
	fmt.Fprintf(&b, "  Quantity difference: %s, price difference: %s\n",
		stats.TotalQuantityDifference.String(), stats.TotalPriceDifference.StringFixed(2))
	fmt.Fprintf(&b, "  Notifications: %d sent, %d failed\n", stats.NotificationsSent, stats.NotificationsFailed)
	return b.String()
}
