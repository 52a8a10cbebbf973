package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/model"
)

func TestSQLiteStorage_SaveAndGetComparison(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	generated := time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC)
	report := createTestReport("run-1", generated)

	id, err := store.SaveComparison(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)

	record, err := store.GetComparison(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, RecordSuccess, record.Status)
	assert.Equal(t, model.ReportDiscrepanciesFound, record.ReportStatus)
	assert.Equal(t, "offer-2025-001", record.OfferID)
	assert.Equal(t, []string{"invoice-a", "invoice-b"}, record.InvoiceIDs)
	assert.True(t, record.CreatedAt.Equal(generated))
	assert.Equal(t, 1, record.Counts[model.KindQuantityMismatch])
	assert.Equal(t, 1, record.Counts[model.KindExtraItem])
	assert.Equal(t, 0, record.Counts[model.KindPriceMismatch])
	assert.Equal(t, 1, record.RowErrors)
	assert.Equal(t, "3", record.TotalQuantityDifference.String())
	assert.False(t, record.NotificationSent)

	require.NotNil(t, record.Report)
	require.Len(t, record.Report.Discrepancies, 2)
	d := record.Report.Discrepancies[0]
	require.NotNil(t, d.OfferLineRef)
	assert.Equal(t, 0, *d.OfferLineRef)
	assert.Equal(t, "-2", d.Delta.Decimal.String())
	assert.False(t, record.Report.Discrepancies[1].Expected.Valid)
}

func TestSQLiteStorage_SaveComparisonValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.SaveComparison(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	_, err = store.SaveComparison(ctx, &model.ComparisonReport{})
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_SaveFailedComparison(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.SaveFailedComparison(ctx, "offer-9", nil, errors.New("ambiguous key"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	record, err := store.GetComparison(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RecordError, record.Status)
	assert.Equal(t, "ambiguous key", record.ErrorMessage)
	assert.Empty(t, record.InvoiceIDs)
	assert.Nil(t, record.Report)
}

func TestSQLiteStorage_UpdateNotificationStatus(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.SaveComparison(ctx, createTestReport("run-1", time.Now()))
	require.NoError(t, err)

	tests := []struct {
		name      string
		id        string
		notifyErr string
		wantErr   error
		sent      bool
	}{
		{name: "sent", id: id, sent: true},
		{name: "failed", id: id, notifyErr: "webhook returned 500"},
		{name: "unknown record", id: "missing", sent: true, wantErr: common.ErrNotFound},
		{name: "empty id", id: "", wantErr: ErrEmptyString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpdateNotificationStatus(ctx, tt.id, tt.sent, tt.notifyErr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			record, err := store.GetComparison(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.sent, record.NotificationSent)
			assert.Equal(t, tt.notifyErr, record.NotificationError)
		})
	}
}

func TestSQLiteStorage_GetComparisonNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetComparison(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_GetComparisonHistory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"day-0", "day-1", "day-2", "day-3"} {
		_, err := store.SaveComparison(ctx, createTestReport(id, base.Add(time.Duration(i)*24*time.Hour)))
		require.NoError(t, err)
	}

	since := base.Add(36 * time.Hour)

	tests := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{name: "all newest first", filter: HistoryFilter{}, want: []string{"day-3", "day-2", "day-1", "day-0"}},
		{name: "limited", filter: HistoryFilter{Limit: 2}, want: []string{"day-3", "day-2"}},
		{name: "since", filter: HistoryFilter{Since: &since}, want: []string{"day-3", "day-2"}},
		{name: "since and limit", filter: HistoryFilter{Since: &since, Limit: 1}, want: []string{"day-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.GetComparisonHistory(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
				assert.Nil(t, r.Report)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := store.GetComparisonHistory(ctx, HistoryFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSQLiteStorage_CleanupOldRecords(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.SaveComparison(ctx, createTestReport("old", now.Add(-100*24*time.Hour)))
	require.NoError(t, err)
	_, err = store.SaveComparison(ctx, createTestReport("recent", now.Add(-10*24*time.Hour)))
	require.NoError(t, err)

	deleted, err := store.CleanupOldRecords(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.GetComparison(ctx, "old")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.GetComparison(ctx, "recent")
	assert.NoError(t, err)
}
