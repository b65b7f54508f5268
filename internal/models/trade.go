package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents an executed position from entry to (optional) exit.
type Trade struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Side       Side             `json:"side"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Fees       decimal.Decimal  `json:"fees"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	PnLPct     *float64         `json:"pnl_pct,omitempty"`
	Platform   Platform         `json:"platform"`
	Strategy   string           `json:"strategy"`
	SignalID   *string          `json:"signal_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
}

// IsOpen reports whether the trade has no exit yet.
func (t Trade) IsOpen() bool {
	return t.ExitPrice == nil
}

// UnrealizedPnL values the open quantity at currentPrice, net of fees.
func (t Trade) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	pnl, _ := CalculatePnL(t.EntryPrice, currentPrice, t.Quantity, t.Side, t.Fees)
	return pnl
}

// TradeClose holds the fields written together when a trade is closed.
type TradeClose struct {
	ExitPrice decimal.Decimal
	PnL       decimal.Decimal
	PnLPct    float64
	ClosedAt  time.Time
}

// CloseAt builds the close record for exiting t at exitPrice.
func (t Trade) CloseAt(exitPrice decimal.Decimal, at time.Time) TradeClose {
	pnl, pct := CalculatePnL(t.EntryPrice, exitPrice, t.Quantity, t.Side, t.Fees)
	return TradeClose{
		ExitPrice: exitPrice,
		PnL:       pnl,
		PnLPct:    pct,
		ClosedAt:  at,
	}
}

// CalculatePnL returns the absolute P&L and the P&L as a percentage of the
// entry notional. A zero notional yields a zero percentage.
func CalculatePnL(entry, exit, quantity decimal.Decimal, side Side, fees decimal.Decimal) (decimal.Decimal, float64) {
	var pnl decimal.Decimal
	switch side {
	case SideBuy:
		pnl = exit.Sub(entry).Mul(quantity).Sub(fees)
	case SideSell:
		pnl = entry.Sub(exit).Mul(quantity).Sub(fees)
	default:
		return decimal.Zero, 0
	}

	notional := entry.Mul(quantity)
	if notional.IsZero() {
		return pnl, 0
	}
	pct, _ := pnl.Div(notional).Mul(decimal.NewFromInt(100)).Float64()
	return pnl, pct
}
