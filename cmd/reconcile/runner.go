package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/config"
	"github.com/Veraticus/offer-reconciler/internal/document"
	"github.com/Veraticus/offer-reconciler/internal/engine"
	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/notify"
	"github.com/Veraticus/offer-reconciler/internal/storage"
)

// runner loads documents, reconciles them and hands the report to the
// configured consumers. store and notifier are optional.
type runner struct {
	engine   *engine.Engine
	store    *storage.SQLiteStorage
	notifier *notify.SlackNotifier
	logger   *slog.Logger
}

type runnerOptions struct {
	noStore     bool
	forceNotify bool
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Invalid configuration: %v", err), err)
	}
	return cfg, nil
}

func newRunner(ctx context.Context, cfg *config.Config, opts runnerOptions) (*runner, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	r := &runner{
		engine: engine.New(engineCfg),
		logger: slog.Default(),
	}

	if !opts.noStore {
		store, err := openStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	if cfg.Notifications.Slack.Enabled || opts.forceNotify {
		notifier, err := notify.NewSlackNotifier(cfg.Notifications.Slack, r.logger)
		if err != nil {
			r.Close()
			return nil, common.NewUserError("Slack notifications need notifications.slack.webhook_url", err)
		}
		r.notifier = notifier
	}

	return r, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases the history database.
func (r *runner) Close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("Failed to close database", "error", err)
	}
}

// compare reconciles one offer file against its invoice files. Failures are
// stored and reported to Slack before being returned.
func (r *runner) compare(ctx context.Context, offerPath string, invoicePaths []string) (*model.ComparisonReport, error) {
	offerID := document.DocumentID(offerPath)
	invoiceIDs := make([]string, len(invoicePaths))
	for i, path := range invoicePaths {
		invoiceIDs[i] = document.DocumentID(path)
	}

	report, err := r.reconcile(offerPath, invoicePaths)
	if err != nil {
		r.recordFailure(ctx, offerID, invoiceIDs, err)
		return nil, err
	}

	r.logger.Info("Comparison finished",
		"offer", report.OfferID,
		"invoices", len(report.InvoiceIDs),
		"status", report.Status,
		"discrepancies", len(report.Discrepancies))

	var recordID string
	if r.store != nil {
		if recordID, err = r.store.SaveComparison(ctx, report); err != nil {
			r.logger.Error("Failed to store comparison", "report_id", report.ID, "error", err)
		}
	}

	if r.notifier != nil {
		sent, notifyErr := r.notifier.Notify(ctx, report)
		errMsg := ""
		if notifyErr != nil {
			errMsg = notifyErr.Error()
			r.logger.Error("Failed to send notification", "report_id", report.ID, "error", notifyErr)
		}
		if r.store != nil && recordID != "" && (sent || notifyErr != nil) {
			if err := r.store.UpdateNotificationStatus(ctx, recordID, sent, errMsg); err != nil {
				r.logger.Warn("Failed to record notification status", "report_id", report.ID, "error", err)
			}
		}
	}

	return report, nil
}

func (r *runner) reconcile(offerPath string, invoicePaths []string) (*model.ComparisonReport, error) {
	offer, err := document.Load(offerPath, model.RoleOffer)
	if err != nil {
		return nil, err
	}

	invoices := make([]model.RawDocument, 0, len(invoicePaths))
	for _, path := range invoicePaths {
		doc, err := document.Load(path, model.RoleInvoice)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, doc)
	}

	return r.engine.Reconcile(offer, invoices)
}

func (r *runner) recordFailure(ctx context.Context, offerID string, invoiceIDs []string, runErr error) {
	r.logger.Error("Comparison failed", "offer", offerID, "error", runErr)

	if r.store != nil {
		if _, err := r.store.SaveFailedComparison(ctx, offerID, invoiceIDs, runErr); err != nil {
			r.logger.Warn("Failed to store failed comparison", "offer", offerID, "error", err)
		}
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyError(ctx, fmt.Sprintf("Comparison of offer %s failed", offerID), runErr.Error()); err != nil {
			r.logger.Warn("Failed to send error notification", "offer", offerID, "error", err)
		}
	}
}
