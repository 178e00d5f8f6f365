package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bulk-deal-tracker/internal/models"
	"bulk-deal-tracker/internal/store"
	"go.uber.org/zap"
)

// header lists the snapshot columns, matching the stored row layout.
var header = []string{
	"deal_date", "symbol", "security_name", "participant_name", "action",
	"quantity_traded", "trade_price", "remarks", "source", "deal_category", "fetch_date",
}

// Writer saves each fetched batch as a dated CSV file for manual
// inspection and email attachment.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a Writer that saves files into dir.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, logger: logger.Named("snapshot")}
}

// FileName returns the snapshot name of a feed, e.g. NSE_Bulk_Deals_20261015.csv.
func FileName(feed models.Feed, day time.Time) string {
	return strings.ReplaceAll(feed.Label(), " ", "_") + "_Deals_" + day.Format("20060102") + ".csv"
}

// Write saves every non-empty batch and returns the paths written. A file
// that cannot be written is logged and skipped.
func (w *Writer) Write(batches []models.Batch, day time.Time) []string {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.logger.Error("Failed to create snapshot directory", zap.String("dir", w.dir), zap.Error(err))
		return nil
	}

	var paths []string
	for _, b := range batches {
		if b.Len() == 0 {
			continue
		}
		path := filepath.Join(w.dir, FileName(b.Feed, day))
		if err := writeFile(path, b.Records); err != nil {
			w.logger.Error("Failed to write snapshot", zap.String("path", path), zap.Error(err))
			continue
		}
		w.logger.Info("Saved snapshot", zap.String("path", path), zap.Int("records", b.Len()))
		paths = append(paths, path)
	}
	return paths
}

func writeFile(path string, records []models.Deal) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range records {
		if err := cw.Write(toRecord(d)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func toRecord(d models.Deal) []string {
	row := store.ToRow(d)
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	quantity, price := "", ""
	if d.Quantity.Valid {
		quantity = d.Quantity.Decimal.String()
	}
	if d.Price.Valid {
		price = d.Price.Decimal.String()
	}

	return []string{
		deref(row.DealDate),
		sanitize(row.Symbol),
		sanitize(row.SecurityName),
		sanitize(row.ParticipantName),
		sanitize(row.Action),
		quantity,
		price,
		sanitize(row.Remarks),
		row.Source,
		row.DealCategory,
		row.FetchDate,
	}
}

// sanitize prefixes cells that a spreadsheet would evaluate as a formula.
// A lone "-" is the exchanges' empty placeholder and is left as is.
func sanitize(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "-" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
