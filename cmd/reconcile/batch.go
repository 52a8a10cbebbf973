package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/document"
	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/report"
)

var errBatchFailures = errors.New("comparisons failed")

type batchResult struct {
	err    error
	report *model.ComparisonReport
	pair   document.Pair
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Compare every offer in a directory",
		Long: `Compare every offer in DIR against its invoices.

Offers are named <stem>.offer.<ext>, invoices <stem><anything>.invoice.<ext>.
Each invoice belongs to the offer with the longest matching stem. Offers are
processed in parallel using processing.workers workers.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().Bool("no-store", false, "do not record the comparisons in the history database")
	cmd.Flags().Bool("notify", false, "send Slack notifications even if notifications are disabled")
	cmd.Flags().Int("workers", 0, "parallel comparisons (default: processing.workers)")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	noStore, _ := cmd.Flags().GetBool("no-store")
	forceNotify, _ := cmd.Flags().GetBool("notify")
	workers, _ := cmd.Flags().GetInt("workers")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.Processing.Workers
	}

	pairs, err := document.FindPairs(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Cannot read %s", args[0]), err)
	}
	if len(pairs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), report.FormatWarning("No offers found in "+args[0]))
		return nil
	}

	ctx := cmd.Context()
	r, err := newRunner(ctx, cfg, runnerOptions{noStore: noStore, forceNotify: forceNotify})
	if err != nil {
		return err
	}
	defer r.Close()

	bar := progressbar.NewOptions(len(pairs),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Comparing offers...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	results := make([]batchResult, len(pairs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, pair := range pairs {
		results[i].pair = pair
		if len(pair.Invoices) == 0 {
			_ = bar.Add(1)
			continue
		}

		wg.Add(1)
		go func(idx int, pair document.Pair) {
			defer wg.Done()
			defer func() {
				if err := bar.Add(1); err != nil {
					slog.Warn("Failed to update progress bar", "error", err)
				}
			}()

			// Acquire semaphore
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx].err = ctx.Err()
				return
			}

			results[idx].report, results[idx].err = r.compare(ctx, pair.Offer, pair.Invoices)
		}(i, pair)
	}

	wg.Wait()

	failed := printBatchSummary(cmd, results)
	if failed > 0 {
		return common.NewUserError(fmt.Sprintf("%d of %d comparisons failed", failed, len(pairs)),
			fmt.Errorf("%w: %d", errBatchFailures, failed))
	}
	return nil
}

// printBatchSummary writes one line per offer and returns the number of
// comparisons that failed.
func printBatchSummary(cmd *cobra.Command, results []batchResult) int {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.TitleStyle.Render("Batch results"))

	var clean, flagged, failed, skipped int
	for _, res := range results {
		offerID := document.DocumentID(res.pair.Offer)
		switch {
		case len(res.pair.Invoices) == 0:
			skipped++
			fmt.Fprintln(out, report.SubtleStyle.Render(fmt.Sprintf("  - %s: no invoices yet", offerID)))
		case res.err != nil:
			failed++
			fmt.Fprintln(out, "  "+report.FormatError(fmt.Sprintf("%s: %v", offerID, res.err)))
		case res.report.HasDiscrepancies():
			flagged++
			fmt.Fprintln(out, "  "+report.FormatWarning(fmt.Sprintf("%s: %d discrepancies across %d invoices",
				offerID, len(res.report.Discrepancies), len(res.report.InvoiceIDs))))
		default:
			clean++
			fmt.Fprintln(out, "  "+report.FormatSuccess(fmt.Sprintf("%s: matched %d invoices", offerID, len(res.report.InvoiceIDs))))
		}
	}

	fmt.Fprintf(out, "\n%d matched, %d with discrepancies, %d failed, %d without invoices\n", clean, flagged, failed, skipped)
	return failed
}
