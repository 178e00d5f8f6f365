package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies the exchange a deal was disclosed on.
type Source string

// Category is the disclosure category of a deal.
type Category string

const (
	SourceNSE Source = "NSE"
	SourceBSE Source = "BSE"

	CategoryBulk  Category = "BULK"
	CategoryBlock Category = "BLOCK"

	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Deal is a bulk or block deal after normalization.
type Deal struct {
	// DealDate is nil when the disclosed date could not be parsed.
	DealDate     *time.Time
	Symbol       string
	SecurityName string
	// ParticipantName is the disclosed counterparty, or "" when the source
	// does not publish one. It is never absent.
	ParticipantName string
	Action          string
	Quantity        decimal.NullDecimal
	Price           decimal.NullDecimal
	Remarks         string
	Source          Source
	Category        Category
	FetchDate       time.Time
}

// Feed is one (source, category) data set fetched per run.
type Feed struct {
	Source   Source
	Category Category
}

// Feeds lists every feed in the order the job processes them.
var Feeds = []Feed{
	{Source: SourceNSE, Category: CategoryBulk},
	{Source: SourceNSE, Category: CategoryBlock},
	{Source: SourceBSE, Category: CategoryBulk},
	{Source: SourceBSE, Category: CategoryBlock},
}

// Name returns the short feed key, e.g. "nse_bulk".
func (f Feed) Name() string {
	return strings.ToLower(string(f.Source)) + "_" + strings.ToLower(string(f.Category))
}

// Table returns the remote table the feed is stored in, e.g. "nse_bulk_deals".
func (f Feed) Table() string {
	return f.Name() + "_deals"
}

// Label returns a display label such as "NSE Bulk".
func (f Feed) Label() string {
	c := strings.ToLower(string(f.Category))
	return string(f.Source) + " " + strings.ToUpper(c[:1]) + c[1:]
}

// Batch is the normalized output of one feed.
type Batch struct {
	Feed    Feed
	Records []Deal
	// HasParticipants is false when the source table carried no participant
	// column at all.
	HasParticipants bool
}

// Len returns the number of records, treating a nil batch as empty.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}
