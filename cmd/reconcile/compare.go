package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/report"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatXLSX = "xlsx"
)

var errDiscrepancies = errors.New("discrepancies found")

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare an offer against its invoices",
		Long: `Reconcile one offer against one or more invoices or delivery notes.

Documents may be CSV, XLSX, YAML or JSON tables. The result is printed as text
by default, stored in the history database and, when enabled, sent to Slack.`,
		Example: `  reconcile compare --offer acme-17.offer.csv --invoice acme-17-a.invoice.csv --invoice acme-17-b.invoice.xlsx
  reconcile compare --offer offer.yaml --invoice inv.yaml --format xlsx --output result.xlsx`,
		RunE: runCompare,
	}

	cmd.Flags().String("offer", "", "offer document (required)")
	cmd.Flags().StringSlice("invoice", nil, "invoice document, repeatable (required)")
	cmd.Flags().String("format", formatText, "output format (text, json, xlsx)")
	cmd.Flags().StringP("output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().Bool("no-store", false, "do not record the comparison in the history database")
	cmd.Flags().Bool("notify", false, "send a Slack notification even if notifications are disabled")
	cmd.Flags().Bool("fail-on-discrepancy", false, "exit non-zero when discrepancies are found")
	_ = cmd.MarkFlagRequired("offer")
	_ = cmd.MarkFlagRequired("invoice")

	return cmd
}

func runCompare(cmd *cobra.Command, _ []string) error {
	offerPath, _ := cmd.Flags().GetString("offer")
	invoicePaths, _ := cmd.Flags().GetStringSlice("invoice")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	noStore, _ := cmd.Flags().GetBool("no-store")
	forceNotify, _ := cmd.Flags().GetBool("notify")
	failOnDiscrepancy, _ := cmd.Flags().GetBool("fail-on-discrepancy")

	if err := validateFormat(format, output); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	r, err := newRunner(ctx, cfg, runnerOptions{noStore: noStore, forceNotify: forceNotify})
	if err != nil {
		return err
	}
	defer r.Close()

	result, err := r.compare(ctx, offerPath, invoicePaths)
	if err != nil {
		return common.NewUserError("Comparison failed", err)
	}

	if err := writeReport(cmd.OutOrStdout(), format, output, result); err != nil {
		return err
	}

	if failOnDiscrepancy && result.HasDiscrepancies() {
		return errDiscrepancies
	}
	return nil
}

func validateFormat(format, output string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	case formatXLSX:
		if output == "" {
			return common.NewUserError("--format xlsx needs --output", fmt.Errorf("%w: xlsx to terminal", common.ErrUnsupportedFormat))
		}
		return nil
	default:
		return common.NewUserError(fmt.Sprintf("Unknown format %q (use text, json or xlsx)", format), common.ErrUnsupportedFormat)
	}
}

// writeReport renders result to output, or to stdout when output is empty.
func writeReport(stdout io.Writer, format, output string, result *model.ComparisonReport) (err error) {
	w := stdout
	if output != "" {
		f, createErr := os.Create(output) //nolint:gosec // path comes from the operator
		if createErr != nil {
			return fmt.Errorf("failed to create %s: %w", output, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", output, closeErr)
			}
		}()
		w = f
	}

	switch format {
	case formatJSON:
		return report.WriteJSON(w, result)
	case formatXLSX:
		return report.WriteXLSX(w, result)
	default:
		return report.NewTextFormatter().Write(w, result)
	}
}
