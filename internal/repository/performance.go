package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
)

// PerformanceRepository persists strategy performance snapshots. Snapshots
// are written once and never updated.
type PerformanceRepository struct {
	db *gorm.DB
}

// NewPerformanceRepository creates a PerformanceRepository bound to s.
func NewPerformanceRepository(s *database.Session) *PerformanceRepository {
	return &PerformanceRepository{db: s.DB()}
}

// Create stores p and returns its assigned id.
func (r *PerformanceRepository) Create(ctx context.Context, p models.PerformanceSnapshot) (int64, error) {
	row, err := toPerformanceRow(p)
	if err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, storageError("create performance snapshot", err)
	}
	return row.ID, nil
}

// GetLatest returns the newest snapshot for strategy, or nil if there is none.
func (r *PerformanceRepository) GetLatest(ctx context.Context, strategy string) (*models.PerformanceSnapshot, error) {
	var row database.PerformanceRow
	err := r.db.WithContext(ctx).Where("strategy = ?", strategy).Order("created_at DESC, id DESC").Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageError("get latest performance snapshot", err)
	}
	p, err := toPerformance(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByStrategy returns the newest snapshots for strategy.
func (r *PerformanceRepository) GetByStrategy(ctx context.Context, strategy string, limit int) ([]models.PerformanceSnapshot, error) {
	var rows []database.PerformanceRow
	err := r.db.WithContext(ctx).
		Where("strategy = ?", strategy).
		Order("created_at DESC, id DESC").
		Limit(normalizeLimit(limit, defaultLimit)).
		Find(&rows).Error
	if err != nil {
		return nil, storageError("get performance snapshots", err)
	}
	return mapRows(rows, toPerformance)
}

func toPerformanceRow(p models.PerformanceSnapshot) (database.PerformanceRow, error) {
	if p.PeriodEnd.Before(p.PeriodStart) {
		return database.PerformanceRow{}, fmt.Errorf("%w: period ends before it starts", models.ErrValidationFailed)
	}
	var platform *string
	if p.Platform != nil {
		parsed, err := models.ParsePlatform(string(*p.Platform))
		if err != nil {
			return database.PerformanceRow{}, err
		}
		s := string(parsed)
		platform = &s
	}
	return database.PerformanceRow{
		Strategy:      p.Strategy,
		Platform:      platform,
		Symbol:        p.Symbol,
		TotalPnL:      money.Encode(p.TotalPnL),
		TotalPnLPct:   p.TotalPnLPct,
		WinRate:       p.WinRate,
		ProfitFactor:  p.ProfitFactor,
		MaxDrawdown:   p.MaxDrawdown,
		SharpeRatio:   p.SharpeRatio,
		TotalTrades:   p.TotalTrades,
		WinningTrades: p.WinningTrades,
		LosingTrades:  p.LosingTrades,
		PeriodStart:   p.PeriodStart.UTC(),
		PeriodEnd:     p.PeriodEnd.UTC(),
		CreatedAt:     stampOrNow(p.CreatedAt),
	}, nil
}

func toPerformance(row database.PerformanceRow) (models.PerformanceSnapshot, error) {
	var platform *models.Platform
	if row.Platform != nil {
		parsed, err := models.ParsePlatform(*row.Platform)
		if err != nil {
			return models.PerformanceSnapshot{}, err
		}
		platform = &parsed
	}
	total, err := money.DecodeField("total_pnl", row.TotalPnL)
	if err != nil {
		return models.PerformanceSnapshot{}, err
	}
	return models.PerformanceSnapshot{
		ID:            row.ID,
		Strategy:      row.Strategy,
		Platform:      platform,
		Symbol:        row.Symbol,
		TotalPnL:      total,
		TotalPnLPct:   row.TotalPnLPct,
		WinRate:       row.WinRate,
		ProfitFactor:  row.ProfitFactor,
		MaxDrawdown:   row.MaxDrawdown,
		SharpeRatio:   row.SharpeRatio,
		TotalTrades:   row.TotalTrades,
		WinningTrades: row.WinningTrades,
		LosingTrades:  row.LosingTrades,
		PeriodStart:   row.PeriodStart.UTC(),
		PeriodEnd:     row.PeriodEnd.UTC(),
		CreatedAt:     row.CreatedAt.UTC(),
	}, nil
}
