package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create a test report.
func createTestReport(id string, generatedAt time.Time) *model.ComparisonReport {
	ref := 0
	return &model.ComparisonReport{
		ID:          id,
		OfferID:     "offer-2025-001",
		InvoiceIDs:  []string{"invoice-a", "invoice-b"},
		GeneratedAt: generatedAt,
		Status:      model.ReportDiscrepanciesFound,
		Counts: map[model.DiscrepancyKind]int{
			model.KindQuantityMismatch: 1,
			model.KindExtraItem:        1,
		},
		Discrepancies: []model.Discrepancy{
			{
				OfferLineRef: &ref,
				ItemCode:     "A123",
				Kind:         model.KindQuantityMismatch,
				Severity:     model.SeverityHigh,
				Expected:     decimal.NewNullDecimal(decimal.NewFromInt(10)),
				Actual:       decimal.NewNullDecimal(decimal.NewFromInt(8)),
				Delta:        decimal.NewNullDecimal(decimal.NewFromInt(-2)),
			},
			{
				ItemCode: "E999",
				Kind:     model.KindExtraItem,
				Severity: model.SeverityMedium,
				Delta:    decimal.NewNullDecimal(decimal.NewFromInt(1)),
			},
		},
		RowErrors: []model.RowError{{DocumentID: "invoice-a", Row: 4, Message: "malformed row"}},
		Summary: model.ReportSummary{
			TotalLines:              1,
			TotalQuantityDifference: decimal.NewFromInt(3),
			TotalPriceDifference:    decimal.Zero,
		},
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates missing directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, dbPath, store.Path())
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("  ")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var indexCount int
	err = store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name IN ('idx_comparisons_created_at', 'idx_comparisons_offer_id')
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 2, indexCount)
}

func TestSQLiteStorage_NilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // nil context is the point of the test
	_, err := store.GetComparisonHistory(nil, HistoryFilter{})
	assert.ErrorIs(t, err, ErrNilContext)
}
