// Package engine reconciles an offer against the invoices delivered for it.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/offer-reconciler/internal/matcher"
	"github.com/Veraticus/offer-reconciler/internal/model"
	"github.com/Veraticus/offer-reconciler/internal/normalize"
)

// ErrRoleMismatch is returned when a document is passed in the wrong role.
var ErrRoleMismatch = errors.New("document role mismatch")

// Engine runs the reconciliation pipeline. It holds no state between runs and
// is safe for concurrent use.
type Engine struct {
	now        func() time.Time
	newID      func() string
	normalizer *normalize.Normalizer
	matcher    *matcher.Matcher
	comparator *Comparator
	classifier *Classifier
	cfg        Config
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock sets the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator sets the report ID source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New creates an engine for cfg. The configuration is validated by Reconcile.
func New(cfg Config, opts ...Option) *Engine {
	cmp := NewComparator(cfg)
	e := &Engine{
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
		normalizer: normalize.NewNormalizer(),
		matcher: matcher.New(matcher.Options{
			TieBreak:  cfg.TieBreak,
			Threshold: cfg.DescriptionSimilarity,
			Strict:    cfg.StrictDisambiguation,
		}),
		comparator: cmp,
		classifier: NewClassifier(cfg, cmp),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Reconcile compares an offer with all of its invoices. Row-level extraction
// problems are reported inside the result; an error is returned only for an
// invalid configuration, an unusable document, or an ambiguous key in strict
// mode.
func (e *Engine) Reconcile(offer model.RawDocument, invoices []model.RawDocument) (*model.ComparisonReport, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkRole(offer, model.RoleOffer); err != nil {
		return nil, err
	}

	offerItems, rowErrors, err := e.normalizer.NormalizeDocument(offer)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize offer: %w", err)
	}

	invoiceItems := make([][]model.LineItem, 0, len(invoices))
	invoiceIDs := make([]string, 0, len(invoices))
	itemCount := 0
	for _, doc := range invoices {
		if err := checkRole(doc, model.RoleInvoice); err != nil {
			return nil, err
		}
		items, errs, err := e.normalizer.NormalizeDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize invoice: %w", err)
		}
		invoiceItems = append(invoiceItems, items)
		invoiceIDs = append(invoiceIDs, doc.ID)
		rowErrors = append(rowErrors, errs...)
		itemCount += len(items)
	}

	matched, err := e.matcher.Match(offerItems, invoiceItems)
	if err != nil {
		return nil, fmt.Errorf("failed to match invoice items: %w", err)
	}

	lines := Aggregate(offerItems, matched.Assignments, e.comparator)
	outcomes := make([]model.LineOutcome, len(lines))
	for i, line := range lines {
		outcomes[i] = model.LineOutcome{Line: line, Discrepancies: e.classifier.ClassifyLine(line)}
	}

	extras := make([]model.ExtraInvoiceItem, 0, len(matched.Unmatched))
	var extraDiscrepancies []model.Discrepancy
	for _, u := range matched.Unmatched {
		extra := model.ExtraInvoiceItem{Item: u.Item, Reason: u.Reason}
		extras = append(extras, extra)
		extraDiscrepancies = append(extraDiscrepancies, e.classifier.ClassifyExtra(extra)...)
	}

	report := BuildReport(ReportMeta{
		ID:           e.newID(),
		OfferID:      offer.ID,
		InvoiceIDs:   invoiceIDs,
		GeneratedAt:  e.now(),
		RowErrors:    rowErrors,
		Notes:        matched.Notes,
		InvoiceItems: itemCount,
	}, outcomes, extras, extraDiscrepancies)

	slog.Debug("Reconciliation finished",
		"offer", offer.ID,
		"invoices", len(invoices),
		"status", report.Status,
		"discrepancies", len(report.Discrepancies),
		"row_errors", len(rowErrors))

	return report, nil
}

func checkRole(doc model.RawDocument, want model.DocumentRole) error {
	if doc.Role != "" && doc.Role != want {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrRoleMismatch, doc.ID, doc.Role, want)
	}
	return nil
}
