package store

import (
	"context"
	"fmt"
	"time"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLiteGateway keeps the deal tables in a local SQLite file. It backs
// offline runs and local inspection with the same table layout as the
// remote store.
type SQLiteGateway struct {
	db        *gorm.DB
	logger    *zap.Logger
	batchSize int
}

// NewSQLiteGateway opens the database at cfg.SQLitePath and migrates the
// deal and watchlist tables.
func NewSQLiteGateway(cfg *config.Store, logger *zap.Logger) (*SQLiteGateway, error) {
	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps in-memory
	// databases alive across calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	tables := make([]string, 0, len(models.Feeds))
	for _, f := range models.Feeds {
		tables = append(tables, f.Table())
	}
	if err := AutoMigrate(db, tables...); err != nil {
		return nil, err
	}

	return &SQLiteGateway{
		db:        db,
		logger:    logger.Named("sqlite"),
		batchSize: cfg.BatchSize,
	}, nil
}

// AutoMigrate creates the given deal tables and the watchlist table.
func AutoMigrate(db *gorm.DB, tables ...string) error {
	for _, t := range tables {
		if err := db.Table(t).AutoMigrate(&models.DealRow{}); err != nil {
			return fmt.Errorf("failed to auto-migrate %s: %w", t, err)
		}
	}
	if err := db.AutoMigrate(&models.MonitoredInvestor{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s: %w", WatchlistTable, err)
	}
	return nil
}

// DB exposes the underlying connection.
func (g *SQLiteGateway) DB() *gorm.DB {
	return g.db
}

// Close releases the database connection.
func (g *SQLiteGateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Store implements Gateway.
func (g *SQLiteGateway) Store(ctx context.Context, records []models.Deal, table string) int {
	return storeInBatches(ctx, g.logger, table, records, g.batchSize, g.insert)
}

func (g *SQLiteGateway) insert(ctx context.Context, table string, rows []models.DealRow) error {
	if err := g.db.WithContext(ctx).Table(table).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert into %s failed: %w", table, err)
	}
	return nil
}

// TodayCounts implements Gateway.
func (g *SQLiteGateway) TodayCounts(ctx context.Context, tables []string, day time.Time) map[string]int {
	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int64
		err := g.db.WithContext(ctx).
			Table(table).
			Where("fetch_date = ?", day.Format(time.DateOnly)).
			Count(&n).Error
		if err != nil {
			g.logger.Error("Failed to count today's rows", zap.String("table", table), zap.Error(err))
			n = 0
		}
		counts[table] = int(n)
	}
	return counts
}

// ActiveWatchlist implements Gateway.
func (g *SQLiteGateway) ActiveWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	var rows []models.MonitoredInvestor
	if err := g.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}

	entries := make([]models.WatchlistEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, ToEntry(r))
	}
	g.logger.Info("Loaded watchlist", zap.Int("entries", len(entries)))
	return entries, nil
}
