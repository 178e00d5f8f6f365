package exchange

import (
	"context"
	"time"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/models"
	"bulk-deal-tracker/internal/normalize"
	"go.uber.org/zap"
)

// BSE identifies instruments by a numeric security code, which is stored as
// the symbol. Page revisions mark some headers with footnote asterisks.
var bseMapping = normalize.Mapping{
	"Deal Date":     normalize.FieldDealDate,
	"Security Code": normalize.FieldSymbol,
	"Security Name": normalize.FieldSecurityName,
	"Client Name":   normalize.FieldParticipant,
	"Deal Type *":   normalize.FieldAction,
	"Deal Type":     normalize.FieldAction,
	"Quantity":      normalize.FieldQuantity,
	"Price **":      normalize.FieldPrice,
	"Price":         normalize.FieldPrice,
	"Trade Price":   normalize.FieldPrice,
}

var bseDateLayouts = []string{"02/01/2006", "02-01-2006", "02 Jan 2006", "02-Jan-2006"}

// BSEAdapter scrapes bulk and block deals from the BSE report pages.
type BSEAdapter struct {
	client     *Client
	cfg        config.BSE
	logger     *zap.Logger
	minColumns int
}

// NewBSEAdapter creates a new BSE adapter.
func NewBSEAdapter(client *Client, cfg config.BSE, logger *zap.Logger) *BSEAdapter {
	return &BSEAdapter{
		client:     client,
		cfg:        cfg,
		logger:     logger.Named("bse"),
		minColumns: DefaultMinColumns,
	}
}

// Source implements Fetcher.
func (a *BSEAdapter) Source() models.Source {
	return models.SourceBSE
}

// FetchDeals implements Fetcher.
func (a *BSEAdapter) FetchDeals(ctx context.Context, category models.Category, runAt time.Time) (models.Batch, error) {
	r := report{
		feed:    models.Feed{Source: models.SourceBSE, Category: category},
		mapping: bseMapping,
		layouts: bseDateLayouts,
	}

	switch category {
	case models.CategoryBulk:
		r.url = a.cfg.BulkURL
	case models.CategoryBlock:
		r.url = a.cfg.BlockURL
	default:
		return models.Batch{Feed: r.feed}, unknownCategory(models.SourceBSE, category)
	}

	return fetchReport(ctx, a.client, a.logger, a.minColumns, r, runAt)
}
