package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SupabaseGateway stores deals through the Supabase PostgREST API.
type SupabaseGateway struct {
	client    *resty.Client
	logger    *zap.Logger
	batchSize int
}

// NewSupabaseGateway creates a gateway for the project at cfg.SupabaseURL.
func NewSupabaseGateway(cfg *config.Store, logger *zap.Logger) *SupabaseGateway {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.SupabaseURL, "/")+"/rest/v1").
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.SupabaseKey).
		SetAuthToken(cfg.SupabaseKey).
		SetHeader("Content-Type", "application/json")

	return &SupabaseGateway{
		client:    client,
		logger:    logger.Named("supabase"),
		batchSize: cfg.BatchSize,
	}
}

// Store implements Gateway.
func (g *SupabaseGateway) Store(ctx context.Context, records []models.Deal, table string) int {
	return storeInBatches(ctx, g.logger, table, records, g.batchSize, g.insert)
}

func (g *SupabaseGateway) insert(ctx context.Context, table string, rows []models.DealRow) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(rows).
		Post("/" + table)
	if err != nil {
		return fmt.Errorf("insert into %s failed: %w", table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("insert into %s failed with status %s: %s", table, resp.Status(), resp.String())
	}
	return nil
}

// TodayCounts implements Gateway.
func (g *SupabaseGateway) TodayCounts(ctx context.Context, tables []string, day time.Time) map[string]int {
	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		n, err := g.count(ctx, table, day)
		if err != nil {
			g.logger.Error("Failed to count today's rows", zap.String("table", table), zap.Error(err))
		}
		counts[table] = n
	}
	return counts
}

func (g *SupabaseGateway) count(ctx context.Context, table string, day time.Time) (int, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParams(map[string]string{
			"select":     "*",
			"fetch_date": "eq." + day.Format(time.DateOnly),
		}).
		Head("/" + table)
	if err != nil {
		return 0, fmt.Errorf("count on %s failed: %w", table, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("count on %s failed with status %s", table, resp.Status())
	}
	return parseContentRange(resp.Header().Get("Content-Range"))
}

// parseContentRange reads the total from a PostgREST range such as "0-9/42"
// or "*/0".
func parseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, fmt.Errorf("malformed Content-Range %q", v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range %q: %w", v, err)
	}
	return n, nil
}

// ActiveWatchlist implements Gateway.
func (g *SupabaseGateway) ActiveWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	var rows []models.MonitoredInvestor
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":    "investor_name,display_name,category,priority,is_active",
			"is_active": "eq.true",
		}).
		SetResult(&rows).
		Get("/" + WatchlistTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to load watchlist: status %s: %s", resp.Status(), resp.String())
	}

	entries := make([]models.WatchlistEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, ToEntry(r))
	}
	g.logger.Info("Loaded watchlist", zap.Int("entries", len(entries)))
	return entries, nil
}
