package exchange

import (
	"context"
	"net/url"
	"strings"
	"time"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/models"
	"bulk-deal-tracker/internal/normalize"
	"go.uber.org/zap"
)

var nseBulkMapping = normalize.Mapping{
	"Date":                           normalize.FieldDealDate,
	"Symbol":                         normalize.FieldSymbol,
	"Security Name":                  normalize.FieldSecurityName,
	"Client Name":                    normalize.FieldParticipant,
	"Buy/Sell":                       normalize.FieldAction,
	"Buy / Sell":                     normalize.FieldAction,
	"Quantity Traded":                normalize.FieldQuantity,
	"Trade Price / Wght. Avg. Price": normalize.FieldPrice,
	"Trade Price/Wght. Avg. Price":   normalize.FieldPrice,
	"Remarks":                        normalize.FieldRemarks,
}

// Block reports carry no remarks column.
var nseBlockMapping = normalize.Mapping{
	"Date":                           normalize.FieldDealDate,
	"Symbol":                         normalize.FieldSymbol,
	"Security Name":                  normalize.FieldSecurityName,
	"Client Name":                    normalize.FieldParticipant,
	"Buy/Sell":                       normalize.FieldAction,
	"Buy / Sell":                     normalize.FieldAction,
	"Quantity Traded":                normalize.FieldQuantity,
	"Trade Price / Wght. Avg. Price": normalize.FieldPrice,
	"Trade Price/Wght. Avg. Price":   normalize.FieldPrice,
}

var nseDateLayouts = []string{"02-Jan-2006", "02-01-2006", "2006-01-02"}

// NSEAdapter fetches bulk and block deals from the National Stock Exchange.
// The daily archive CSVs are used unless the historical API is enabled.
type NSEAdapter struct {
	client     *Client
	cfg        config.NSE
	logger     *zap.Logger
	minColumns int
	warmedUp   bool
}

// NewNSEAdapter creates a new NSE adapter.
func NewNSEAdapter(client *Client, cfg config.NSE, logger *zap.Logger) *NSEAdapter {
	return &NSEAdapter{
		client:     client,
		cfg:        cfg,
		logger:     logger.Named("nse"),
		minColumns: DefaultMinColumns,
	}
}

// Source implements Fetcher.
func (a *NSEAdapter) Source() models.Source {
	return models.SourceNSE
}

// FetchDeals implements Fetcher.
func (a *NSEAdapter) FetchDeals(ctx context.Context, category models.Category, runAt time.Time) (models.Batch, error) {
	r, err := a.report(category, runAt)
	if err != nil {
		return models.Batch{Feed: models.Feed{Source: models.SourceNSE, Category: category}}, err
	}

	// NSE rejects cookieless sessions on its API hosts.
	if !a.warmedUp {
		a.client.WarmUp(ctx, nonEmpty(a.cfg.HomeURL, a.cfg.DealsPageURL)...)
		a.warmedUp = true
	}

	return fetchReport(ctx, a.client, a.logger, a.minColumns, r, runAt)
}

func (a *NSEAdapter) report(category models.Category, runAt time.Time) (report, error) {
	r := report{
		feed:    models.Feed{Source: models.SourceNSE, Category: category},
		layouts: nseDateLayouts,
	}

	switch category {
	case models.CategoryBulk:
		r.url, r.mapping = a.cfg.BulkURL, nseBulkMapping
	case models.CategoryBlock:
		r.url, r.mapping = a.cfg.BlockURL, nseBlockMapping
	default:
		return r, unknownCategory(models.SourceNSE, category)
	}

	if a.cfg.UseHistoricalAPI {
		r.url = historicalURL(a.cfg.HistoricalURL, category, runAt)
		r.headers = map[string]string{"Referer": a.cfg.DealsPageURL}
	}
	return r, nil
}

// historicalURL builds a single-day CSV query against the historical deals
// API, e.g. {base}/bulk-deals?from=15-10-2026&to=15-10-2026&csv=true.
func historicalURL(base string, category models.Category, day time.Time) string {
	d := day.Format("02-01-2006")
	q := url.Values{}
	q.Set("from", d)
	q.Set("to", d)
	q.Set("csv", "true")
	return strings.TrimRight(base, "/") + "/" + strings.ToLower(string(category)) + "-deals?" + q.Encode()
}

func nonEmpty(in ...string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
