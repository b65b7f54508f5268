// Package performance aggregates closed trades into strategy snapshots.
package performance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/repository"
)

// Compute builds a snapshot for strategy from the closed trades in trades
// whose close time falls within [start, end]. Open trades, trades of other
// strategies and trades outside the window are ignored.
func Compute(strategy string, trades []models.Trade, start, end time.Time) models.PerformanceSnapshot {
	snap := models.PerformanceSnapshot{
		Strategy:    strategy,
		TotalPnL:    decimal.Zero,
		PeriodStart: start.UTC(),
		PeriodEnd:   end.UTC(),
	}

	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Strategy != strategy || t.PnL == nil {
			continue
		}
		at := closedAt(t)
		if at.Before(start) || at.After(end) {
			continue
		}
		closed = append(closed, t)
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closedAt(closed[i]).Before(closedAt(closed[j]))
	})

	grossWin, grossLoss := decimal.Zero, decimal.Zero
	returns := make([]float64, 0, len(closed))
	for _, t := range closed {
		pnl := *t.PnL
		snap.TotalPnL = snap.TotalPnL.Add(pnl)
		switch {
		case pnl.IsPositive():
			snap.WinningTrades++
			grossWin = grossWin.Add(pnl)
		case pnl.IsNegative():
			snap.LosingTrades++
			grossLoss = grossLoss.Add(pnl.Neg())
		}
		pct := 0.0
		if t.PnLPct != nil {
			pct = *t.PnLPct
		}
		snap.TotalPnLPct += pct
		returns = append(returns, pct)
	}

	snap.TotalTrades = len(closed)
	if snap.TotalTrades > 0 {
		snap.WinRate = float64(snap.WinningTrades) / float64(snap.TotalTrades)
	}
	if grossLoss.IsPositive() {
		pf, _ := grossWin.Div(grossLoss).Float64()
		snap.ProfitFactor = &pf
	}
	snap.MaxDrawdown = maxDrawdown(closed)
	snap.SharpeRatio = sharpe(returns)
	return snap
}

// Record computes the snapshot for strategy over [start, end] from the stored
// trades and writes it in a single session.
func Record(ctx context.Context, store *database.Store, strategy string, start, end time.Time) (*models.PerformanceSnapshot, error) {
	var snap models.PerformanceSnapshot
	err := store.Session(ctx, func(s *database.Session) error {
		repos := repository.New(s)
		// Trades are selected by creation time; Compute narrows them to the close window.
		trades, err := repos.Trades.GetByDateRange(s.Context(), time.Time{}, end, "", 0)
		if err != nil {
			return err
		}
		snap = Compute(strategy, trades, start, end)
		snap.CreatedAt = time.Now().UTC()
		snap.ID, err = repos.Performance.Create(s.Context(), snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func closedAt(t models.Trade) time.Time {
	if t.ClosedAt != nil {
		return *t.ClosedAt
	}
	return t.CreatedAt
}

// maxDrawdown is the largest fall of cumulative P&L from a running peak, as a
// fraction of that peak. It is nil while the peak has never been positive.
func maxDrawdown(trades []models.Trade) *float64 {
	cum, peak := decimal.Zero, decimal.Zero
	var worst *float64
	for _, t := range trades {
		cum = cum.Add(*t.PnL)
		if cum.GreaterThan(peak) {
			peak = cum
		}
		if !peak.IsPositive() {
			continue
		}
		dd, _ := peak.Sub(cum).Div(peak).Float64()
		if worst == nil || dd > *worst {
			worst = &dd
		}
	}
	return worst
}

// sharpe is mean over sample standard deviation of per-trade returns.
func sharpe(returns []float64) *float64 {
	n := len(returns)
	if n < 2 {
		return nil
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sq / float64(n-1))
	if std == 0 {
		return nil
	}
	s := mean / std
	return &s
}
