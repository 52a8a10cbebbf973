package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

// RecordStatus tells whether a comparison ran to completion.
type RecordStatus string

// Record status constants.
const (
	RecordSuccess RecordStatus = "success"
	RecordError   RecordStatus = "error"
)

// ComparisonRecord is one stored comparison run.
type ComparisonRecord struct {
	CreatedAt               time.Time
	TotalQuantityDifference decimal.Decimal
	TotalPriceDifference    decimal.Decimal
	Counts                  map[model.DiscrepancyKind]int
	Report                  *model.ComparisonReport // only loaded by GetComparison
	ID                      string
	OfferID                 string
	Status                  RecordStatus
	ReportStatus            model.ReportStatus
	ErrorMessage            string
	NotificationError       string
	InvoiceIDs              []string
	TotalLines              int
	MatchedLines            int
	RowErrors               int
	NotificationSent        bool
}

// HistoryFilter narrows GetComparisonHistory.
type HistoryFilter struct {
	Since *time.Time
	Limit int // zero means no limit
}

const recordColumns = `id, created_at, offer_id, invoice_ids, status, report_status, error_message,
	total_lines, matched_lines, quantity_mismatches, price_mismatches, missing_items, extra_items,
	partial_deliveries, extraction_inconsistencies, total_quantity_difference, total_price_difference,
	row_errors, notification_sent, notification_error`

// SaveComparison stores a finished report and returns the record ID.
func (s *SQLiteStorage) SaveComparison(ctx context.Context, report *model.ComparisonReport) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateReport(report); err != nil {
		return "", err
	}

	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := report.GeneratedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	invoiceIDs, err := json.Marshal(nonNil(report.InvoiceIDs))
	if err != nil {
		return "", fmt.Errorf("failed to encode invoice IDs: %w", err)
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comparisons (`+recordColumns+`, report)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		id, formatTime(createdAt), report.OfferID, string(invoiceIDs), RecordSuccess, report.Status,
		report.Summary.TotalLines, report.Summary.MatchedLines,
		report.Count(model.KindQuantityMismatch), report.Count(model.KindPriceMismatch),
		report.Count(model.KindMissingItem), report.Count(model.KindExtraItem),
		report.Count(model.KindPartialDelivery), report.Count(model.KindExtractionInconsistency),
		report.Summary.TotalQuantityDifference.String(), report.Summary.TotalPriceDifference.String(),
		len(report.RowErrors), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save comparison: %w", err)
	}

	return id, nil
}

// SaveFailedComparison records a run that could not produce a report.
func (s *SQLiteStorage) SaveFailedComparison(ctx context.Context, offerID string, invoiceIDs []string, runErr error) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(offerID, "offerID"); err != nil {
		return "", err
	}
	if runErr == nil {
		return "", fmt.Errorf("%w: runErr", ErrNilParameter)
	}

	encoded, err := json.Marshal(nonNil(invoiceIDs))
	if err != nil {
		return "", fmt.Errorf("failed to encode invoice IDs: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comparisons (id, created_at, offer_id, invoice_ids, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, formatTime(s.now()), offerID, string(encoded), RecordError, runErr.Error(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save failed comparison: %w", err)
	}

	return id, nil
}

// UpdateNotificationStatus records whether the notification for id went out.
func (s *SQLiteStorage) UpdateNotificationStatus(ctx context.Context, id string, sent bool, notifyErr string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	var errValue sql.NullString
	if notifyErr != "" {
		errValue = sql.NullString{String: notifyErr, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE comparisons SET notification_sent = ?, notification_error = ? WHERE id = ?`,
		sent, errValue, id)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comparison %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetComparison loads one record including its full report.
func (s *SQLiteStorage) GetComparison(ctx context.Context, id string) (*ComparisonRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+`, report FROM comparisons WHERE id = ?`, id)

	var payload sql.NullString
	record, err := scanRecord(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comparison %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if payload.Valid && payload.String != "" {
		var report model.ComparisonReport
		if err := json.Unmarshal([]byte(payload.String), &report); err != nil {
			return nil, fmt.Errorf("%w: comparison %s report: %v", common.ErrDatabaseCorrupted, id, err)
		}
		record.Report = &report
	}

	return record, nil
}

// GetComparisonHistory lists records newest first without their reports.
func (s *SQLiteStorage) GetComparisonHistory(ctx context.Context, filter HistoryFilter) ([]ComparisonRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		return nil, ErrInvalidLimit
	}

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + recordColumns + ` FROM comparisons`)
	if filter.Since != nil {
		query.WriteString(` WHERE created_at >= ?`)
		args = append(args, formatTime(*filter.Since))
	}
	query.WriteString(` ORDER BY created_at DESC, id`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []ComparisonRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comparison history: %w", err)
	}

	return records, nil
}

// CleanupOldRecords deletes records created before olderThan.
func (s *SQLiteStorage) CleanupOldRecords(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM comparisons WHERE created_at < ?`, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old comparisons: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, extra ...any) (*ComparisonRecord, error) {
	var (
		record                         ComparisonRecord
		createdAt, invoiceIDs          string
		status                         string
		reportStatus, errMsg, notifErr sql.NullString
		qtyDiff, priceDiff             sql.NullString
		rowErrors                      sql.NullInt64
		quantity, price, missing       int
		extras, partial, inconsistent  int
	)

	dest := []any{
		&record.ID, &createdAt, &record.OfferID, &invoiceIDs, &status, &reportStatus, &errMsg,
		&record.TotalLines, &record.MatchedLines, &quantity, &price, &missing, &extras,
		&partial, &inconsistent, &qtyDiff, &priceDiff,
		&rowErrors, &record.NotificationSent, &notifErr,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan comparison: %w", err)
	}

	var err error
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabaseCorrupted, err)
	}
	if err := json.Unmarshal([]byte(invoiceIDs), &record.InvoiceIDs); err != nil {
		return nil, fmt.Errorf("%w: invoice IDs of %s: %v", common.ErrDatabaseCorrupted, record.ID, err)
	}

	record.Status = RecordStatus(status)
	record.ReportStatus = model.ReportStatus(reportStatus.String)
	record.ErrorMessage = errMsg.String
	record.NotificationError = notifErr.String
	record.RowErrors = int(rowErrors.Int64)
	record.Counts = map[model.DiscrepancyKind]int{
		model.KindQuantityMismatch:        quantity,
		model.KindPriceMismatch:           price,
		model.KindMissingItem:             missing,
		model.KindExtraItem:               extras,
		model.KindPartialDelivery:         partial,
		model.KindExtractionInconsistency: inconsistent,
	}
	record.TotalQuantityDifference = parseStoredDecimal(qtyDiff)
	record.TotalPriceDifference = parseStoredDecimal(priceDiff)

	return &record, nil
}

func parseStoredDecimal(s sql.NullString) decimal.Decimal {
	if !s.Valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
