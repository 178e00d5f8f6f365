package pipeline

import (
	"context"
	"fmt"
	"time"

	"bulk-deal-tracker/internal/exchange"
	"bulk-deal-tracker/internal/models"
	"bulk-deal-tracker/internal/normalize"
	"bulk-deal-tracker/internal/notify"
	"bulk-deal-tracker/internal/snapshot"
	"bulk-deal-tracker/internal/store"
	"bulk-deal-tracker/internal/watchlist"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// categories are fetched in this order from every exchange.
var categories = []models.Category{models.CategoryBulk, models.CategoryBlock}

// Runner executes one pass of the daily job:
// load watchlist, fetch, match, snapshot, store, summarize, notify.
type Runner struct {
	Logger   *zap.Logger
	Gateway  store.Gateway
	Fetchers []exchange.Fetcher
	Matcher  *watchlist.Matcher
	Composer *notify.Composer
	// Snapshots is optional; nil disables CSV snapshots.
	Snapshots *snapshot.Writer
	Senders   []notify.Sender

	// Location decides the run's calendar day.
	Location *time.Location
	// TodayOnly drops records whose deal date is not the run day.
	TodayOnly bool
	// DryRun skips the store and send steps. Counts come from the fetched
	// batches and the chat text is logged.
	DryRun bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes a completed run.
type Result struct {
	RunID     string
	Summary   models.Summary
	Matches   []models.MatchedDeal
	Stored    int
	Snapshots []string
	Delivered int
}

// Run executes every step once, in order. Feed, store and notification
// faults are logged and absorbed; an error means the run did not finish.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := r.Logger.With(zap.String("run_id", res.RunID))
	runAt := r.now()

	log.Info("Starting bulk & block deals run",
		zap.String("run_date", runAt.Format(time.DateOnly)),
		zap.Bool("dry_run", r.DryRun),
		zap.Bool("today_only", r.TodayOnly))

	log.Info("[STEP 1/7] Loading watchlist")
	entries, err := r.Gateway.ActiveWatchlist(ctx)
	if err != nil {
		log.Error("Failed to load watchlist, continuing without one", zap.Error(err))
		entries = nil
	}

	if err := stepDone(ctx, "load watchlist"); err != nil {
		return nil, err
	}
	log.Info("[STEP 2/7] Fetching deals")
	batches := r.fetchAll(ctx, log, runAt)

	if err := stepDone(ctx, "fetch"); err != nil {
		return nil, err
	}
	log.Info("[STEP 3/7] Matching watchlist")
	res.Matches = r.Matcher.Match(batches, entries)
	if len(res.Matches) > 0 {
		log.Info("ALERT: watchlist activity found", zap.Int("matches", len(res.Matches)))
	}

	log.Info("[STEP 4/7] Saving snapshots")
	if r.Snapshots != nil {
		res.Snapshots = r.Snapshots.Write(batches, runAt)
	} else {
		log.Info("Snapshots disabled")
	}

	if err := stepDone(ctx, "snapshot"); err != nil {
		return nil, err
	}
	log.Info("[STEP 5/7] Storing deals")
	res.Stored = r.storeAll(ctx, log, batches)

	if err := stepDone(ctx, "store"); err != nil {
		return nil, err
	}
	log.Info("[STEP 6/7] Summarizing")
	res.Summary = r.summarize(ctx, batches, runAt)

	log.Info("[STEP 7/7] Sending notifications")
	msg, err := r.Composer.Compose(res.Summary, res.Matches, runAt, res.Snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to compose report: %w", err)
	}
	if r.DryRun {
		log.Info("Dry run, notifications not sent", zap.String("subject", msg.Subject), zap.String("chat_text", msg.Text))
	} else {
		res.Delivered = notify.Dispatch(ctx, log, msg, r.Senders...)
		if res.Delivered == 0 && len(r.Senders) > 0 {
			log.Error("No notification channel delivered the report")
		}
	}

	fields := []zap.Field{
		zap.Int("total_deals", res.Summary.Total()),
		zap.Int("alerts", len(res.Matches)),
		zap.Int("snapshots", len(res.Snapshots)),
		zap.Int("delivered", res.Delivered),
	}
	for _, tc := range res.Summary {
		fields = append(fields, zap.Int(tc.Feed.Name(), tc.Count))
	}
	log.Info("Run completed", fields...)

	return res, nil
}

// fetchAll returns one batch per feed in fetch order. A failed feed yields
// an empty batch so the other feeds are unaffected.
func (r *Runner) fetchAll(ctx context.Context, log *zap.Logger, runAt time.Time) []models.Batch {
	var batches []models.Batch
	for _, f := range r.Fetchers {
		for _, c := range categories {
			feed := models.Feed{Source: f.Source(), Category: c}

			batch, err := f.FetchDeals(ctx, c, runAt)
			if err != nil {
				log.Warn("Fetch failed, treating feed as empty", zap.String("feed", feed.Name()), zap.Error(err))
				batch = models.Batch{Feed: feed}
			}
			batch.Feed = feed
			if r.TodayOnly {
				batch = normalize.FilterByDealDate(batch, runAt, log)
			}
			batches = append(batches, batch)
		}
	}
	return batches
}

func (r *Runner) storeAll(ctx context.Context, log *zap.Logger, batches []models.Batch) int {
	if r.DryRun {
		log.Info("Dry run, skipping store")
		return 0
	}

	stored, total := 0, 0
	for _, b := range batches {
		total += b.Len()
		stored += r.Gateway.Store(ctx, b.Records, b.Feed.Table())
	}

	switch {
	case total == 0:
		log.Warn("No deals fetched from any feed")
	case stored == 0:
		log.Error("No deals were stored", zap.Int("fetched", total))
	default:
		log.Info("Store step completed", zap.Int("stored", stored), zap.Int("fetched", total))
	}
	return stored
}

func (r *Runner) summarize(ctx context.Context, batches []models.Batch, runAt time.Time) models.Summary {
	if r.DryRun {
		counts := make(map[string]int, len(batches))
		for _, b := range batches {
			counts[b.Feed.Table()] += b.Len()
		}
		return models.NewSummary(models.Feeds, counts)
	}

	tables := make([]string, 0, len(models.Feeds))
	for _, f := range models.Feeds {
		tables = append(tables, f.Table())
	}
	return models.NewSummary(models.Feeds, r.Gateway.TodayCounts(ctx, tables, runAt))
}

func (r *Runner) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	t := now()
	if r.Location != nil {
		t = t.In(r.Location)
	}
	return t
}

// stepDone stops the run between steps once ctx is cancelled.
func stepDone(ctx context.Context, step string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted after %s: %w", step, err)
	}
	return nil
}
