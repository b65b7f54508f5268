package repository

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
)

// SignalRepository persists strategy signals. Signals are never updated.
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a SignalRepository bound to s.
func NewSignalRepository(s *database.Session) *SignalRepository {
	return &SignalRepository{db: s.DB()}
}

// Create appends sig and returns its assigned id. The id on sig is ignored.
func (r *SignalRepository) Create(ctx context.Context, sig models.Signal) (int64, error) {
	row, err := toSignalRow(sig)
	if err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, storageError("create signal", err)
	}
	return row.ID, nil
}

// GetRecent returns the newest signals, optionally filtered by symbol and platform.
func (r *SignalRepository) GetRecent(ctx context.Context, symbol string, platform models.Platform, limit int) ([]models.Signal, error) {
	q := r.db.WithContext(ctx)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if platform != "" {
		q = q.Where("platform = ?", string(platform))
	}

	var rows []database.SignalRow
	err := q.Order("created_at DESC, id DESC").Limit(normalizeLimit(limit, defaultLimit)).Find(&rows).Error
	if err != nil {
		return nil, storageError("get recent signals", err)
	}
	return mapRows(rows, toSignal)
}

func toSignalRow(s models.Signal) (database.SignalRow, error) {
	action, err := models.ParseSignalAction(string(s.Action))
	if err != nil {
		return database.SignalRow{}, err
	}
	platform, err := models.ParsePlatform(string(s.Platform))
	if err != nil {
		return database.SignalRow{}, err
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return database.SignalRow{}, fmt.Errorf("%w: confidence %v outside [0, 1]", models.ErrValidationFailed, s.Confidence)
	}
	return database.SignalRow{
		Symbol:     s.Symbol,
		Action:     string(action),
		Confidence: s.Confidence,
		Reasoning:  s.Reasoning,
		Strategy:   s.Strategy,
		AIProvider: s.AIProvider,
		Platform:   string(platform),
		CreatedAt:  stampOrNow(s.CreatedAt),
	}, nil
}

func toSignal(row database.SignalRow) (models.Signal, error) {
	action, err := models.ParseSignalAction(row.Action)
	if err != nil {
		return models.Signal{}, err
	}
	platform, err := models.ParsePlatform(row.Platform)
	if err != nil {
		return models.Signal{}, err
	}
	return models.Signal{
		ID:         row.ID,
		Symbol:     row.Symbol,
		Action:     action,
		Confidence: row.Confidence,
		Reasoning:  row.Reasoning,
		Strategy:   row.Strategy,
		AIProvider: row.AIProvider,
		Platform:   platform,
		CreatedAt:  row.CreatedAt.UTC(),
	}, nil
}
