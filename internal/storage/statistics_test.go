package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

func TestSQLiteStorage_GetStatistics(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	first, err := store.SaveComparison(ctx, createTestReport("a", now.Add(-2*time.Hour)))
	require.NoError(t, err)
	second, err := store.SaveComparison(ctx, createTestReport("b", now.Add(-1*time.Hour)))
	require.NoError(t, err)
	_, err = store.SaveFailedComparison(ctx, "offer-x", []string{"inv"}, errors.New("boom"))
	require.NoError(t, err)
	_, err = store.SaveComparison(ctx, createTestReport("ancient", now.Add(-400*24*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, store.UpdateNotificationStatus(ctx, first, true, ""))
	require.NoError(t, store.UpdateNotificationStatus(ctx, second, false, "timeout"))

	since := now.Add(-24 * time.Hour)
	stats, err := store.GetStatistics(ctx, &since)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalComparisons)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.LinesCompared)
	assert.Equal(t, 2, stats.Discrepancies[model.KindQuantityMismatch])
	assert.Equal(t, "6", stats.TotalQuantityDifference.String())
	assert.Equal(t, 1, stats.NotificationsSent)
	assert.Equal(t, 1, stats.NotificationsFailed)

	all, err := store.GetStatistics(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalComparisons)
}
