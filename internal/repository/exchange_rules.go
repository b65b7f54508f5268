package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
)

// ExchangeRulesRepository persists venue trading rules, one row per
// (symbol, platform).
type ExchangeRulesRepository struct {
	db *gorm.DB
}

// NewExchangeRulesRepository creates an ExchangeRulesRepository bound to s.
func NewExchangeRulesRepository(s *database.Session) *ExchangeRulesRepository {
	return &ExchangeRulesRepository{db: s.DB()}
}

// Upsert inserts rules or replaces every field of the existing row with the
// same key, and returns the stored copy. A zero UpdatedAt is stamped with the
// current time.
func (r *ExchangeRulesRepository) Upsert(ctx context.Context, rules models.ExchangeRules) (*models.ExchangeRules, error) {
	row, err := toExchangeRulesRow(rules)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "platform"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return nil, storageError("upsert exchange rules", err)
	}
	return r.Get(ctx, row.Symbol, models.Platform(row.Platform))
}

// Get returns the rules for (symbol, platform), or nil if none are stored.
func (r *ExchangeRulesRepository) Get(ctx context.Context, symbol string, platform models.Platform) (*models.ExchangeRules, error) {
	var row database.ExchangeRulesRow
	err := r.db.WithContext(ctx).Where("symbol = ? AND platform = ?", symbol, string(platform)).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageError("get exchange rules", err)
	}
	rules, err := toExchangeRules(row)
	if err != nil {
		return nil, err
	}
	return &rules, nil
}

// GetAll returns every rule set stored for platform, ordered by symbol.
func (r *ExchangeRulesRepository) GetAll(ctx context.Context, platform models.Platform) ([]models.ExchangeRules, error) {
	var rows []database.ExchangeRulesRow
	err := r.db.WithContext(ctx).Where("platform = ?", string(platform)).Order("symbol ASC").Find(&rows).Error
	if err != nil {
		return nil, storageError("get all exchange rules", err)
	}
	return mapRows(rows, toExchangeRules)
}

func toExchangeRulesRow(r models.ExchangeRules) (database.ExchangeRulesRow, error) {
	platform, err := models.ParsePlatform(string(r.Platform))
	if err != nil {
		return database.ExchangeRulesRow{}, err
	}
	leverage := r.LeverageOptions
	if leverage == nil {
		leverage = []int{}
	}
	encoded, err := json.Marshal(leverage)
	if err != nil {
		return database.ExchangeRulesRow{}, fmt.Errorf("encode leverage options: %w", err)
	}
	return database.ExchangeRulesRow{
		Symbol:          r.Symbol,
		Platform:        string(platform),
		MinQty:          money.Encode(r.MinQty),
		MaxQty:          money.Encode(r.MaxQty),
		QtyStep:         money.Encode(r.QtyStep),
		QtyPrecision:    r.QtyPrecision,
		PricePrecision:  r.PricePrecision,
		MinNotional:     money.Encode(r.MinNotional),
		LeverageOptions: string(encoded),
		MakerFee:        money.Encode(r.MakerFee),
		TakerFee:        money.Encode(r.TakerFee),
		UpdatedAt:       stampOrNow(r.UpdatedAt),
	}, nil
}

func toExchangeRules(row database.ExchangeRulesRow) (models.ExchangeRules, error) {
	platform, err := models.ParsePlatform(row.Platform)
	if err != nil {
		return models.ExchangeRules{}, err
	}
	var leverage []int
	if err := json.Unmarshal([]byte(row.LeverageOptions), &leverage); err != nil {
		return models.ExchangeRules{}, fmt.Errorf("leverage_options: %w: %v", money.ErrMalformedValue, err)
	}
	rules := models.ExchangeRules{
		Symbol:          row.Symbol,
		Platform:        platform,
		QtyPrecision:    row.QtyPrecision,
		PricePrecision:  row.PricePrecision,
		LeverageOptions: leverage,
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	for _, f := range []struct {
		name string
		text string
		dst  *decimal.Decimal
	}{
		{"min_qty", row.MinQty, &rules.MinQty},
		{"max_qty", row.MaxQty, &rules.MaxQty},
		{"qty_step", row.QtyStep, &rules.QtyStep},
		{"min_notional", row.MinNotional, &rules.MinNotional},
		{"maker_fee", row.MakerFee, &rules.MakerFee},
		{"taker_fee", row.TakerFee, &rules.TakerFee},
	} {
		if *f.dst, err = money.DecodeField(f.name, f.text); err != nil {
			return models.ExchangeRules{}, err
		}
	}
	return rules, nil
}
