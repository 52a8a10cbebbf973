package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/watch"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch folders and compare invoices as they arrive",
		Long: `Watch the offers and invoices folders. Whenever an invoice whose name starts
with a known offer's stem appears, that offer is compared against all of its
invoices. Offers without new invoices are forgotten after monitoring.pending_expiry.`,
		RunE: runWatch,
	}

	cmd.Flags().String("offers", "", "offers folder (default: monitoring.folders.offers)")
	cmd.Flags().String("invoices", "", "invoices folder (default: monitoring.folders.invoices)")
	cmd.Flags().Bool("no-store", false, "do not record comparisons in the history database")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	offers, _ := cmd.Flags().GetString("offers")
	invoices, _ := cmd.Flags().GetString("invoices")
	noStore, _ := cmd.Flags().GetBool("no-store")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if offers == "" {
		offers = cfg.Monitoring.OffersFolder
	}
	if invoices == "" {
		invoices = cfg.Monitoring.InvoicesFolder
	}

	ctx := cmd.Context()
	r, err := newRunner(ctx, cfg, runnerOptions{noStore: noStore})
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := watch.New(watch.Options{
		Logger:         r.logger,
		OffersFolder:   offers,
		InvoicesFolder: invoices,
		Debounce:       cfg.Monitoring.Debounce,
		PendingExpiry:  cfg.Monitoring.PendingExpiry,
	}, func(ctx context.Context, offer string, invoices []string) error {
		_, err := r.compare(ctx, offer, invoices)
		return err
	})
	if err != nil {
		return common.NewUserError("Set monitoring.folders.offers or pass --offers", err)
	}

	return w.Run(ctx)
}
