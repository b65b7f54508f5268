package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
)

// CandleRepository persists OHLCV bars. Inserts are idempotent on
// (symbol, timeframe, timestamp, platform).
type CandleRepository struct {
	db *gorm.DB
}

// NewCandleRepository creates a CandleRepository bound to s.
func NewCandleRepository(s *database.Session) *CandleRepository {
	return &CandleRepository{db: s.DB()}
}

// Create inserts c unless a candle with the same identity exists and
// reports whether a row was written.
func (r *CandleRepository) Create(ctx context.Context, c models.Candle) (bool, error) {
	row, err := toCandleRow(c)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, storageError("create candle", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CreateMany inserts every candle whose identity is absent and returns how
// many were written. Duplicates are skipped without failing the batch.
func (r *CandleRepository) CreateMany(ctx context.Context, candles []models.Candle) (int, error) {
	inserted := 0
	for _, c := range candles {
		ok, err := r.Create(ctx, c)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// GetBySymbol returns candles in ascending time order. Zero start or end
// leaves that side of the range open.
func (r *CandleRepository) GetBySymbol(ctx context.Context, symbol, timeframe string, platform models.Platform, start, end time.Time, limit int) ([]models.Candle, error) {
	q := r.db.WithContext(ctx).Where("symbol = ? AND timeframe = ? AND platform = ?", symbol, timeframe, string(platform))
	if !start.IsZero() {
		q = q.Where("open_time >= ?", start.UTC())
	}
	if !end.IsZero() {
		q = q.Where("open_time <= ?", end.UTC())
	}

	var rows []database.CandleRow
	err := q.Order("open_time ASC").Limit(normalizeLimit(limit, defaultCandleLimit)).Find(&rows).Error
	if err != nil {
		return nil, storageError("get candles", err)
	}
	return mapRows(rows, toCandle)
}

// GetLatest returns the most recent candle for the series, or nil if it is empty.
func (r *CandleRepository) GetLatest(ctx context.Context, symbol, timeframe string, platform models.Platform) (*models.Candle, error) {
	var row database.CandleRow
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ? AND platform = ?", symbol, timeframe, string(platform)).
		Order("open_time DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageError("get latest candle", err)
	}
	c, err := toCandle(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteOld removes every candle strictly older than before and returns the count.
func (r *CandleRepository) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("open_time < ?", before.UTC()).Delete(&database.CandleRow{})
	if res.Error != nil {
		return 0, storageError("delete old candles", res.Error)
	}
	return res.RowsAffected, nil
}

func toCandleRow(c models.Candle) (database.CandleRow, error) {
	platform, err := models.ParsePlatform(string(c.Platform))
	if err != nil {
		return database.CandleRow{}, err
	}
	return database.CandleRow{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		OpenTime:  c.Timestamp.UTC(),
		Platform:  string(platform),
		Open:      money.Encode(c.Open),
		High:      money.Encode(c.High),
		Low:       money.Encode(c.Low),
		Close:     money.Encode(c.Close),
		Volume:    money.Encode(c.Volume),
	}, nil
}

func toCandle(row database.CandleRow) (models.Candle, error) {
	platform, err := models.ParsePlatform(row.Platform)
	if err != nil {
		return models.Candle{}, err
	}
	c := models.Candle{
		Symbol:    row.Symbol,
		Timeframe: row.Timeframe,
		Timestamp: row.OpenTime.UTC(),
		Platform:  platform,
	}
	for _, f := range []struct {
		name string
		text string
		dst  *decimal.Decimal
	}{
		{"open", row.Open, &c.Open},
		{"high", row.High, &c.High},
		{"low", row.Low, &c.Low},
		{"close", row.Close, &c.Close},
		{"volume", row.Volume, &c.Volume},
	} {
		if *f.dst, err = money.DecodeField(f.name, f.text); err != nil {
			return models.Candle{}, err
		}
	}
	return c, nil
}
