package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceSnapshot aggregates a strategy's closed trades over
// [PeriodStart, PeriodEnd]. Snapshots are written once and never updated.
type PerformanceSnapshot struct {
	ID            int64           `json:"id"`
	Strategy      string          `json:"strategy"`
	Platform      *Platform       `json:"platform,omitempty"`
	Symbol        *string         `json:"symbol,omitempty"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	TotalPnLPct   float64         `json:"total_pnl_pct"`
	WinRate       float64         `json:"win_rate"`
	ProfitFactor  *float64        `json:"profit_factor,omitempty"`
	MaxDrawdown   *float64        `json:"max_drawdown,omitempty"`
	SharpeRatio   *float64        `json:"sharpe_ratio,omitempty"`
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	CreatedAt     time.Time       `json:"created_at"`
}
