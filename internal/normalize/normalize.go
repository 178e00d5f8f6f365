package normalize

import (
	"strings"
	"time"

	"bulk-deal-tracker/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Field is a canonical deal column.
type Field string

const (
	FieldDealDate     Field = "deal_date"
	FieldSymbol       Field = "symbol"
	FieldSecurityName Field = "security_name"
	FieldParticipant  Field = "participant_name"
	FieldAction       Field = "action"
	FieldQuantity     Field = "quantity_traded"
	FieldPrice        Field = "trade_price"
	FieldRemarks      Field = "remarks"
)

// Mapping maps a source column header to a canonical field. Several headers
// may map to the same field; the first one present in a table wins.
type Mapping map[string]Field

// Table is raw tabular data as scraped from a source.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Normalizer turns raw tables from one feed into canonical deals.
type Normalizer struct {
	Feed        models.Feed
	Mapping     Mapping
	DateLayouts []string
	// FetchTime is the run start; every record gets its calendar date as
	// fetch_date.
	FetchTime time.Time
	Logger    *zap.Logger
}

// Normalize converts t into a batch. A nil or empty table yields an empty
// batch. Individual cell parse failures never drop a record.
func (n *Normalizer) Normalize(t *Table) models.Batch {
	batch := models.Batch{Feed: n.Feed}
	if t == nil || len(t.Headers) == 0 {
		return batch
	}

	l := n.logger().With(zap.String("feed", n.Feed.Name()))
	index := n.resolve(t.Headers)

	_, batch.HasParticipants = index[FieldParticipant]
	if !batch.HasParticipants {
		l.Warn("Participant column not found, records will carry an empty participant name",
			zap.Strings("headers", t.Headers))
	}
	if _, ok := index[FieldDealDate]; !ok {
		l.Warn("Deal date column not found, defaulting to the run date")
	}

	fetchDate := Day(n.FetchTime)
	badDates, skipped := 0, 0

	for _, row := range t.Rows {
		if isPlaceholder(row, len(t.Headers)) {
			skipped++
			continue
		}

		cell := func(f Field) (string, bool) {
			i, ok := index[f]
			if !ok {
				return "", false
			}
			if i >= len(row) {
				return "", true
			}
			return strings.TrimSpace(row[i]), true
		}

		deal := models.Deal{
			Source:    n.Feed.Source,
			Category:  n.Feed.Category,
			FetchDate: fetchDate,
		}

		if raw, ok := cell(FieldDealDate); ok {
			deal.DealDate = ParseDate(raw, n.FetchTime.Location(), n.DateLayouts...)
			if deal.DealDate == nil {
				badDates++
			}
		} else {
			d := fetchDate
			deal.DealDate = &d
		}

		deal.Symbol, _ = cell(FieldSymbol)
		deal.SecurityName, _ = cell(FieldSecurityName)
		deal.ParticipantName, _ = cell(FieldParticipant)
		deal.Remarks, _ = cell(FieldRemarks)
		if raw, ok := cell(FieldAction); ok {
			deal.Action = ParseAction(raw)
		}
		if raw, ok := cell(FieldQuantity); ok {
			deal.Quantity = ParseAmount(raw)
		}
		if raw, ok := cell(FieldPrice); ok {
			deal.Price = ParseAmount(raw)
		}

		batch.Records = append(batch.Records, deal)
	}

	if badDates > 0 {
		l.Warn("Unparseable deal dates left empty", zap.Int("count", badDates))
	}
	l.Debug("Normalized feed",
		zap.Int("records", len(batch.Records)),
		zap.Int("skipped_rows", skipped))

	return batch
}

// resolve maps every canonical field to the index of the first matching
// header present in the table.
func (n *Normalizer) resolve(headers []string) map[Field]int {
	lookup := make(map[string]Field, len(n.Mapping))
	for h, f := range n.Mapping {
		lookup[headerKey(h)] = f
	}

	index := make(map[Field]int)
	for i, h := range headers {
		f, ok := lookup[headerKey(h)]
		if !ok {
			continue
		}
		if _, taken := index[f]; !taken {
			index[f] = i
		}
	}
	return index
}

func (n *Normalizer) logger() *zap.Logger {
	if n.Logger == nil {
		return zap.NewNop()
	}
	return n.Logger
}

// FilterByDealDate keeps only records disclosed on day. Upstream feeds may
// return a trailing window of earlier days; discarded rows are logged.
func FilterByDealDate(b models.Batch, day time.Time, log *zap.Logger) models.Batch {
	want := Day(day)
	kept := b.Records[:0:0]
	for _, d := range b.Records {
		if d.DealDate != nil && d.DealDate.Equal(want) {
			kept = append(kept, d)
		}
	}

	if dropped := len(b.Records) - len(kept); dropped > 0 && log != nil {
		log.Info("Discarded records outside the run date",
			zap.String("feed", b.Feed.Name()),
			zap.String("run_date", want.Format(time.DateOnly)),
			zap.Int("discarded", dropped),
			zap.Int("kept", len(kept)))
	}

	b.Records = kept
	return b
}

// ParseAction upper-cases an action code and expands B/S to BUY/SELL.
// Unrecognized values pass through upper-cased.
func ParseAction(raw string) string {
	action := strings.ToUpper(strings.TrimSpace(raw))
	switch action {
	case "B":
		return models.ActionBuy
	case "S":
		return models.ActionSell
	default:
		return action
	}
}

// ParseAmount parses a quantity or price after removing thousands
// separators. Blank, malformed and negative values are null.
func ParseAmount(raw string) decimal.NullDecimal {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0':
			return -1
		}
		return r
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseDate parses raw with the first matching layout and returns midnight
// of that day in loc, or nil when nothing matches.
func ParseDate(raw string, loc *time.Location, layouts ...string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			d := Day(t)
			return &d
		}
	}
	return nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// isPlaceholder reports blank rows and single-cell rows such as
// "No Records Found" spanning a multi-column table.
func isPlaceholder(row []string, columns int) bool {
	filled := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			filled++
		}
	}
	return filled == 0 || (filled == 1 && columns > 1 && len(row) == 1)
}
