package main

import (
	"encoding/json"
	"net/http"
	"time"

	"bulk-deal-tracker/internal/models"
	"bulk-deal-tracker/internal/store"
	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	gateway *store.SQLiteGateway
	loc     *time.Location
	now     func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, gateway *store.SQLiteGateway, loc *time.Location) *APIHandler {
	return &APIHandler{log: log, gateway: gateway, loc: loc, now: time.Now}
}

// FeedCount is one line of the summary response.
type FeedCount struct {
	Feed  string `json:"feed"`
	Label string `json:"label"`
	Table string `json:"table"`
	Count int    `json:"count"`
}

// SummaryResponse is the structure for the /api/summary endpoint.
type SummaryResponse struct {
	Date  string      `json:"date"`
	Feeds []FeedCount `json:"feeds"`
	Total int         `json:"total"`
}

// WatchlistItem is one entry of the /api/watchlist response.
type WatchlistItem struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
}

// DealsHandler returns the rows of one deal table fetched on a given day.
func (h *APIHandler) DealsHandler(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}
	table := r.URL.Query().Get("table")
	if !knownTable(table) {
		http.Error(w, "unknown table", http.StatusBadRequest)
		return
	}

	var rows []models.DealRow
	err := h.gateway.DB().WithContext(r.Context()).
		Table(table).
		Where("fetch_date = ?", day.Format(time.DateOnly)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		h.log.Error("Failed to get deals from database", zap.String("table", table), zap.Error(err))
		http.Error(w, "Failed to get deals", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

// SummaryHandler returns per-table counts for a given day.
func (h *APIHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}

	tables := make([]string, 0, len(models.Feeds))
	for _, f := range models.Feeds {
		tables = append(tables, f.Table())
	}
	summary := models.NewSummary(models.Feeds, h.gateway.TodayCounts(r.Context(), tables, day))

	resp := SummaryResponse{Date: day.Format(time.DateOnly), Total: summary.Total()}
	for _, tc := range summary {
		resp.Feeds = append(resp.Feeds, FeedCount{
			Feed:  tc.Feed.Name(),
			Label: tc.Feed.Label(),
			Table: tc.Feed.Table(),
			Count: tc.Count,
		})
	}
	writeJSON(w, resp)
}

// WatchlistHandler returns the active watchlist.
func (h *APIHandler) WatchlistHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gateway.ActiveWatchlist(r.Context())
	if err != nil {
		h.log.Error("Failed to get watchlist", zap.Error(err))
		http.Error(w, "Failed to get watchlist", http.StatusInternalServerError)
		return
	}

	items := make([]WatchlistItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, WatchlistItem{Name: e.Name, DisplayName: e.DisplayName, Category: e.Category, Priority: e.Priority})
	}
	writeJSON(w, items)
}

// day reads the optional date query parameter, defaulting to today.
func (h *APIHandler) day(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return h.now().In(h.loc), true
	}
	day, err := time.ParseInLocation(time.DateOnly, v, h.loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return time.Time{}, false
	}
	return day, true
}

func knownTable(table string) bool {
	for _, f := range models.Feeds {
		if f.Table() == table {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
