package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/offer-reconciler/internal/model"
)

// Statistics aggregates stored comparison runs.
type Statistics struct {
	TotalQuantityDifference decimal.Decimal
	TotalPriceDifference    decimal.Decimal
	Discrepancies           map[model.DiscrepancyKind]int
	TotalComparisons        int
	Successful              int
	Failed                  int
	LinesCompared           int
	MatchedLines            int
	NotificationsSent       int
	NotificationsFailed     int
}

// GetStatistics summarizes every record created at or after since (all records when nil).
func (s *SQLiteStorage) GetStatistics(ctx context.Context, since *time.Time) (*Statistics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + recordColumns + ` FROM comparisons`)
	if since != nil {
		query.WriteString(` WHERE created_at >= ?`)
		args = append(args, formatTime(*since))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := &Statistics{
		TotalQuantityDifference: decimal.Zero,
		TotalPriceDifference:    decimal.Zero,
		Discrepancies:           make(map[model.DiscrepancyKind]int, len(model.AllDiscrepancyKinds)),
	}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		stats.TotalComparisons++
		if record.Status == RecordSuccess {
			stats.Successful++
		} else {
			stats.Failed++
		}
		stats.LinesCompared += record.TotalLines
		stats.MatchedLines += record.MatchedLines
		for kind, n := range record.Counts {
			stats.Discrepancies[kind] += n
		}
		stats.TotalQuantityDifference = stats.TotalQuantityDifference.Add(record.TotalQuantityDifference)
		stats.TotalPriceDifference = stats.TotalPriceDifference.Add(record.TotalPriceDifference)

		switch {
		case record.NotificationSent:
			stats.NotificationsSent++
		case record.NotificationError != "":
			stats.NotificationsFailed++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statistics: %w", err)
	}

	return stats, nil
}
