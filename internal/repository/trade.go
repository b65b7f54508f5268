package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
)

// TradeRepository persists trades.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a TradeRepository bound to s.
func NewTradeRepository(s *database.Session) *TradeRepository {
	return &TradeRepository{db: s.DB()}
}

// Create inserts t and returns the stored copy. A zero CreatedAt is stamped
// with the current time. Fails with ErrDuplicateKey if the id already exists.
func (r *TradeRepository) Create(ctx context.Context, t models.Trade) (*models.Trade, error) {
	row, err := toTradeRow(t)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, storageError("create trade", err)
	}
	stored, err := toTrade(row)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetByID returns the trade with the given id, or nil if there is none.
func (r *TradeRepository) GetByID(ctx context.Context, id string) (*models.Trade, error) {
	var row database.TradeRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageError("get trade", err)
	}
	t, err := toTrade(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetOpen returns every trade without an exit price, ordered by CreatedAt
// and then by id. This matches insertion order only when callers stamp
// CreatedAt monotonically, as the zero-value default does.
// An empty platform matches all platforms.
func (r *TradeRepository) GetOpen(ctx context.Context, platform models.Platform) ([]models.Trade, error) {
	q := r.db.WithContext(ctx).Where("exit_price IS NULL")
	if platform != "" {
		q = q.Where("platform = ?", string(platform))
	}
	return r.find(q.Order("created_at ASC, id ASC"), "get open trades")
}

// GetBySymbol returns the newest trades for symbol, at most limit of them.
func (r *TradeRepository) GetBySymbol(ctx context.Context, symbol string, platform models.Platform, limit int) ([]models.Trade, error) {
	q := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if platform != "" {
		q = q.Where("platform = ?", string(platform))
	}
	q = q.Order("created_at DESC, id DESC").Limit(normalizeLimit(limit, defaultLimit))
	return r.find(q, "get trades by symbol")
}

// GetByDateRange returns trades created within [start, end], newest first.
// A non-positive limit returns the whole range.
func (r *TradeRepository) GetByDateRange(ctx context.Context, start, end time.Time, platform models.Platform, limit int) ([]models.Trade, error) {
	q := r.db.WithContext(ctx).Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC())
	if platform != "" {
		q = q.Where("platform = ?", string(platform))
	}
	q = q.Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.find(q, "get trades by date range")
}

// Close writes the exit price, P&L, P&L percent and close time of trade id in
// a single statement. Closing an already closed trade overwrites its exit.
// It reports whether a trade with that id exists.
func (r *TradeRepository) Close(ctx context.Context, id string, c models.TradeClose) (bool, error) {
	res := r.db.WithContext(ctx).Model(&database.TradeRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"exit_price": money.Encode(c.ExitPrice),
		"pnl":        money.Encode(c.PnL),
		"pnl_pct":    c.PnLPct,
		"closed_at":  stampOrNow(c.ClosedAt),
	})
	if res.Error != nil {
		return false, storageError("close trade", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete removes trade id and reports whether it existed.
func (r *TradeRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&database.TradeRow{})
	if res.Error != nil {
		return false, storageError("delete trade", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TradeRepository) find(q *gorm.DB, op string) ([]models.Trade, error) {
	var rows []database.TradeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageError(op, err)
	}
	return mapRows(rows, toTrade)
}

func toTradeRow(t models.Trade) (database.TradeRow, error) {
	side, err := models.ParseSide(string(t.Side))
	if err != nil {
		return database.TradeRow{}, err
	}
	platform, err := models.ParsePlatform(string(t.Platform))
	if err != nil {
		return database.TradeRow{}, err
	}
	return database.TradeRow{
		ID:         t.ID,
		Symbol:     t.Symbol,
		Side:       string(side),
		EntryPrice: money.Encode(t.EntryPrice),
		ExitPrice:  money.EncodeOptional(t.ExitPrice),
		Quantity:   money.Encode(t.Quantity),
		Fees:       money.Encode(t.Fees),
		PnL:        money.EncodeOptional(t.PnL),
		PnLPct:     t.PnLPct,
		Platform:   string(platform),
		Strategy:   t.Strategy,
		SignalID:   t.SignalID,
		CreatedAt:  stampOrNow(t.CreatedAt),
		ClosedAt:   utcPtr(t.ClosedAt),
	}, nil
}

func toTrade(row database.TradeRow) (models.Trade, error) {
	side, err := models.ParseSide(row.Side)
	if err != nil {
		return models.Trade{}, err
	}
	platform, err := models.ParsePlatform(row.Platform)
	if err != nil {
		return models.Trade{}, err
	}
	entry, err := money.DecodeField("entry_price", row.EntryPrice)
	if err != nil {
		return models.Trade{}, err
	}
	exit, err := money.DecodeOptionalField("exit_price", row.ExitPrice)
	if err != nil {
		return models.Trade{}, err
	}
	qty, err := money.DecodeField("quantity", row.Quantity)
	if err != nil {
		return models.Trade{}, err
	}
	fees, err := money.DecodeField("fees", row.Fees)
	if err != nil {
		return models.Trade{}, err
	}
	pnl, err := money.DecodeOptionalField("pnl", row.PnL)
	if err != nil {
		return models.Trade{}, err
	}
	return models.Trade{
		ID:         row.ID,
		Symbol:     row.Symbol,
		Side:       side,
		EntryPrice: entry,
		ExitPrice:  exit,
		Quantity:   qty,
		Fees:       fees,
		PnL:        pnl,
		PnLPct:     row.PnLPct,
		Platform:   platform,
		Strategy:   row.Strategy,
		SignalID:   row.SignalID,
		CreatedAt:  row.CreatedAt.UTC(),
		ClosedAt:   utcPtr(row.ClosedAt),
	}, nil
}
