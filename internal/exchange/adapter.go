package exchange

import (
	"context"
	"fmt"
	"time"

	"bulk-deal-tracker/internal/models"
	"bulk-deal-tracker/internal/normalize"
	"go.uber.org/zap"
)

// Fetcher fetches the deal reports of one exchange.
type Fetcher interface {
	Source() models.Source
	// FetchDeals returns the normalized deals of one category. runAt is the
	// run start and becomes every record's fetch date.
	FetchDeals(ctx context.Context, category models.Category, runAt time.Time) (models.Batch, error)
}

// report describes one downloadable deals report.
type report struct {
	feed    models.Feed
	url     string
	headers map[string]string
	mapping normalize.Mapping
	layouts []string
}

// fetchReport downloads a report, selects its data table and normalizes it.
func fetchReport(ctx context.Context, c *Client, logger *zap.Logger, minColumns int, r report, runAt time.Time) (models.Batch, error) {
	l := logger.With(zap.String("feed", r.feed.Name()))
	l.Info("Fetching deals", zap.String("url", r.url))

	body, err := c.Get(ctx, r.url, r.headers)
	if err != nil {
		return models.Batch{Feed: r.feed}, fmt.Errorf("failed to fetch %s: %w", r.feed.Label(), err)
	}

	table, err := ParseTable(body, minColumns)
	if err != nil {
		return models.Batch{Feed: r.feed}, fmt.Errorf("failed to parse %s: %w", r.feed.Label(), err)
	}
	l.Debug("Selected data table", zap.Strings("headers", table.Headers), zap.Int("rows", len(table.Rows)))

	n := normalize.Normalizer{
		Feed:        r.feed,
		Mapping:     r.mapping,
		DateLayouts: r.layouts,
		FetchTime:   runAt,
		Logger:      l,
	}
	batch := n.Normalize(table)

	l.Info("Fetched deals", zap.Int("records", batch.Len()))
	return batch, nil
}

func unknownCategory(source models.Source, category models.Category) error {
	return fmt.Errorf("%s: unknown deal category %q", source, category)
}
