package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fetchDay = time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)

func makeDeals(n int) []models.Deal {
	deals := make([]models.Deal, n)
	for i := range deals {
		deals[i] = models.Deal{
			Symbol:    fmt.Sprintf("SYM%d", i),
			Source:    models.SourceNSE,
			Category:  models.CategoryBulk,
			FetchDate: fetchDay,
		}
	}
	return deals
}

func TestStoreInBatches_EmptyInput(t *testing.T) {
	calls := 0
	insert := func(context.Context, string, []models.DealRow) error {
		calls++
		return nil
	}

	assert.Equal(t, 0, storeInBatches(context.Background(), zap.NewNop(), "nse_bulk_deals", nil, DefaultBatchSize, insert))
	assert.Equal(t, 0, storeInBatches(context.Background(), zap.NewNop(), "nse_bulk_deals", []models.Deal{}, DefaultBatchSize, insert))
	assert.Zero(t, calls)
}

func TestStoreInBatches_FailedBatchIsSkipped(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.ErrorLevel)
	var sizes []int
	insert := func(_ context.Context, table string, rows []models.DealRow) error {
		assert.Equal(t, "bse_block_deals", table)
		sizes = append(sizes, len(rows))
		if len(sizes) == 2 {
			return errors.New("rejected")
		}
		return nil
	}

	// Act
	stored := storeInBatches(context.Background(), zap.New(core), "bse_block_deals", makeDeals(250), DefaultBatchSize, insert)

	// Assert
	assert.Equal(t, 150, stored)
	assert.Equal(t, []int{100, 100, 50}, sizes, "batch 3 is attempted after batch 2 fails")
	entries := logs.FilterMessage("Failed to store batch").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["batch"])
}

func TestToRow(t *testing.T) {
	dealDate := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	d := models.Deal{
		DealDate:        &dealDate,
		Symbol:          "500001",
		ParticipantName: "",
		Action:          models.ActionSell,
		Quantity:        decimal.NewNullDecimal(decimal.NewFromInt(12000)),
		Source:          models.SourceBSE,
		Category:        models.CategoryBlock,
		FetchDate:       time.Date(2026, time.October, 15, 18, 30, 0, 0, time.UTC),
	}

	row := ToRow(d)

	require.NotNil(t, row.DealDate)
	assert.Equal(t, "2026-10-14", *row.DealDate)
	assert.Equal(t, "2026-10-15", row.FetchDate)
	require.NotNil(t, row.QuantityTraded)
	assert.Equal(t, 12000.0, *row.QuantityTraded)
	assert.Nil(t, row.TradePrice)
	assert.Equal(t, "BSE", row.Source)
	assert.Equal(t, "BLOCK", row.DealCategory)

	body, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"deal_date": "2026-10-14", "symbol": "500001", "security_name": "",
		"participant_name": "", "action": "SELL", "quantity_traded": 12000,
		"trade_price": null, "remarks": "", "source": "BSE",
		"deal_category": "BLOCK", "fetch_date": "2026-10-15"
	}`, string(body))
}

func TestToRow_NullDealDate(t *testing.T) {
	row := ToRow(models.Deal{FetchDate: fetchDay})
	assert.Nil(t, row.DealDate)
	assert.Nil(t, row.QuantityTraded)
}

func TestToEntry(t *testing.T) {
	e := ToEntry(models.MonitoredInvestor{InvestorName: " Acme Capital ", Category: "FII", Priority: 7, IsActive: true})
	assert.Equal(t, "ACME CAPITAL", e.Name)
	assert.Equal(t, "Acme Capital", e.DisplayName)
	assert.Equal(t, 7, e.Priority)

	e = ToEntry(models.MonitoredInvestor{InvestorName: "acme", DisplayName: "Acme Group"})
	assert.Equal(t, "ACME", e.Name)
	assert.Equal(t, "Acme Group", e.DisplayName)
}

// setupSupabase creates a test server and a SupabaseGateway configured to use it.
func setupSupabase(t *testing.T, handler http.Handler) *SupabaseGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewSupabaseGateway(&config.Store{
		SupabaseURL: server.URL + "/",
		SupabaseKey: "service-key",
		BatchSize:   DefaultBatchSize,
		Timeout:     5 * time.Second,
	}, zap.NewNop())
}

func TestSupabaseGateway_Store(t *testing.T) {
	// Arrange
	posts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/nse_bulk_deals", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))

		body, _ := io.ReadAll(r.Body)
		var rows []map[string]any
		assert.NoError(t, json.Unmarshal(body, &rows))

		posts++
		if posts == 2 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"bad row"}`))
			return
		}
		if assert.NotEmpty(t, rows) {
			assert.Equal(t, "2026-10-15", rows[0]["fetch_date"])
		}
		w.WriteHeader(http.StatusCreated)
	})
	gw := setupSupabase(t, handler)

	// Act
	stored := gw.Store(context.Background(), makeDeals(201), "nse_bulk_deals")

	// Assert
	assert.Equal(t, 3, posts)
	assert.Equal(t, 101, stored)
}

func TestSupabaseGateway_StoreNothing(t *testing.T) {
	gw := setupSupabase(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))

	assert.Equal(t, 0, gw.Store(context.Background(), nil, "nse_bulk_deals"))
}

func TestSupabaseGateway_TodayCounts(t *testing.T) {
	// Arrange
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "eq.2026-10-15", r.URL.Query().Get("fetch_date"))

		switch r.URL.Path {
		case "/rest/v1/nse_bulk_deals":
			w.Header().Set("Content-Range", "0-2/3")
		case "/rest/v1/nse_block_deals":
			w.Header().Set("Content-Range", "*/0")
		case "/rest/v1/bse_bulk_deals":
			w.WriteHeader(http.StatusInternalServerError)
			return
		case "/rest/v1/bse_block_deals":
			w.Header().Set("Content-Range", "0-4/5")
		}
		w.WriteHeader(http.StatusOK)
	})
	gw := setupSupabase(t, handler)
	tables := []string{"nse_bulk_deals", "nse_block_deals", "bse_bulk_deals", "bse_block_deals"}

	// Act
	counts := gw.TodayCounts(context.Background(), tables, fetchDay)

	// Assert
	assert.Equal(t, map[string]int{
		"nse_bulk_deals":  3,
		"nse_block_deals": 0,
		"bse_bulk_deals":  0,
		"bse_block_deals": 5,
	}, counts)
}

func TestSupabaseGateway_ActiveWatchlist(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/v1/monitored_investors", r.URL.Path)
			assert.Equal(t, "eq.true", r.URL.Query().Get("is_active"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"investor_name":"Acme Capital","display_name":"","category":"FII","priority":10,"is_active":true},
				{"investor_name":"beta fund","display_name":"Beta Fund","category":"MF","priority":3,"is_active":true}
			]`))
		})
		gw := setupSupabase(t, handler)

		entries, err := gw.ActiveWatchlist(context.Background())

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.WatchlistEntry{Name: "ACME CAPITAL", DisplayName: "Acme Capital", Category: "FII", Priority: 10, IsActive: true}, entries[0])
		assert.Equal(t, "BETA FUND", entries[1].Name)
	})

	t.Run("APIError", func(t *testing.T) {
		gw := setupSupabase(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		entries, err := gw.ActiveWatchlist(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load watchlist")
		assert.Nil(t, entries)
	})
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("0-99/1234")
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	_, err = parseContentRange("")
	assert.Error(t, err)
	_, err = parseContentRange("0-1/*")
	assert.Error(t, err)
}

// setupSQLite creates a fresh in-memory gateway for each test.
func setupSQLite(t *testing.T) *SQLiteGateway {
	t.Helper()
	gw, err := NewSQLiteGateway(&config.Store{SQLitePath: "file::memory:", BatchSize: DefaultBatchSize}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func TestSQLiteGateway_StoreAndCount(t *testing.T) {
	// Arrange
	gw := setupSQLite(t)
	ctx := context.Background()
	yesterday := makeDeals(2)
	for i := range yesterday {
		yesterday[i].FetchDate = fetchDay.AddDate(0, 0, -1)
	}

	// Act
	stored := gw.Store(ctx, makeDeals(230), "nse_bulk_deals")
	gw.Store(ctx, yesterday, "nse_bulk_deals")
	gw.Store(ctx, makeDeals(2), "bse_block_deals")
	counts := gw.TodayCounts(ctx, []string{"nse_bulk_deals", "nse_block_deals", "bse_block_deals", "missing_table"}, fetchDay)

	// Assert
	assert.Equal(t, 230, stored)
	assert.Equal(t, 230, counts["nse_bulk_deals"])
	assert.Equal(t, 0, counts["nse_block_deals"])
	assert.Equal(t, 2, counts["bse_block_deals"])
	assert.Equal(t, 0, counts["missing_table"], "a failed count reports zero")
}

func TestSQLiteGateway_ActiveWatchlist(t *testing.T) {
	// Arrange
	gw := setupSQLite(t)
	require.NoError(t, gw.DB().Create(&[]models.MonitoredInvestor{
		{InvestorName: "Acme Capital", Priority: 10, IsActive: true},
		{InvestorName: "Dormant Fund", Priority: 99, IsActive: false},
		{InvestorName: "Beta", DisplayName: "Beta Holdings", Priority: 1, IsActive: true},
	}).Error)

	// Act
	entries, err := gw.ActiveWatchlist(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ACME CAPITAL", entries[0].Name)
	assert.Equal(t, "Beta Holdings", entries[1].DisplayName)
}
