package store

import (
	"context"
	"strings"
	"time"

	"bulk-deal-tracker/internal/models"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of rows written per insert request.
const DefaultBatchSize = 100

// WatchlistTable holds the monitored participants.
const WatchlistTable = "monitored_investors"

// Gateway persists deal batches and answers the summary and watchlist
// queries of a run.
type Gateway interface {
	// Store writes records to table in fixed-size batches and returns the
	// number of rows written. A failed batch is logged and skipped.
	Store(ctx context.Context, records []models.Deal, table string) int
	// TodayCounts returns the number of rows fetched on day per table. A
	// failed query reports zero for that table.
	TodayCounts(ctx context.Context, tables []string, day time.Time) map[string]int
	// ActiveWatchlist returns the active watchlist entries in stored order.
	ActiveWatchlist(ctx context.Context) ([]models.WatchlistEntry, error)
}

type insertFunc func(ctx context.Context, table string, rows []models.DealRow) error

// storeInBatches converts records and inserts them size rows at a time.
// Batches are never retried; later batches are attempted after a failure.
func storeInBatches(ctx context.Context, logger *zap.Logger, table string, records []models.Deal, size int, insert insertFunc) int {
	if len(records) == 0 {
		logger.Info("No records to store", zap.String("table", table))
		return 0
	}
	if size < 1 {
		size = DefaultBatchSize
	}

	rows := make([]models.DealRow, len(records))
	for i, d := range records {
		rows[i] = ToRow(d)
	}

	stored := 0
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if err := insert(ctx, table, rows[start:end]); err != nil {
			logger.Error("Failed to store batch",
				zap.String("table", table),
				zap.Int("batch", start/size+1),
				zap.Int("rows", end-start),
				zap.Error(err))
			continue
		}
		stored += end - start
	}

	logger.Info("Stored records",
		zap.String("table", table),
		zap.Int("stored", stored),
		zap.Int("total", len(rows)))
	return stored
}

// ToRow converts a deal into its persisted shape. Missing values become
// nulls and dates are written as YYYY-MM-DD.
func ToRow(d models.Deal) models.DealRow {
	row := models.DealRow{
		Symbol:          d.Symbol,
		SecurityName:    d.SecurityName,
		ParticipantName: d.ParticipantName,
		Action:          d.Action,
		Remarks:         d.Remarks,
		Source:          string(d.Source),
		DealCategory:    string(d.Category),
		FetchDate:       d.FetchDate.Format(time.DateOnly),
	}
	if d.DealDate != nil {
		s := d.DealDate.Format(time.DateOnly)
		row.DealDate = &s
	}
	if d.Quantity.Valid {
		f := d.Quantity.Decimal.InexactFloat64()
		row.QuantityTraded = &f
	}
	if d.Price.Valid {
		f := d.Price.Decimal.InexactFloat64()
		row.TradePrice = &f
	}
	return row
}

// ToEntry converts a watchlist row into a match entry. The name is the
// upper-cased match key and the display name falls back to it.
func ToEntry(inv models.MonitoredInvestor) models.WatchlistEntry {
	name := strings.TrimSpace(inv.InvestorName)
	display := strings.TrimSpace(inv.DisplayName)
	if display == "" {
		display = name
	}
	return models.WatchlistEntry{
		Name:        strings.ToUpper(name),
		DisplayName: display,
		Category:    inv.Category,
		Priority:    inv.Priority,
		IsActive:    inv.IsActive,
	}
}
