package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
	"trade-ledger-go/internal/repository"
)

func TestPerformanceRepository_CreateAndRead(t *testing.T) {
	store := newTestStore(t)
	platform := models.PlatformBinance
	factor := 2.5

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		for i := 0; i < 3; i++ {
			snap := models.PerformanceSnapshot{
				Strategy:      "momentum",
				Platform:      &platform,
				TotalPnL:      dec("123.45000000"),
				TotalPnLPct:   4.2,
				WinRate:       0.6,
				ProfitFactor:  &factor,
				TotalTrades:   10 + i,
				WinningTrades: 6,
				LosingTrades:  4 + i,
				PeriodStart:   base.AddDate(0, 0, -30),
				PeriodEnd:     base,
				CreatedAt:     base.Add(time.Duration(i) * time.Hour),
			}
			_, err := repos.Performance.Create(ctx, snap)
			require.NoError(t, err)
		}
		_, err := repos.Performance.Create(ctx, models.PerformanceSnapshot{
			Strategy: "other", PeriodStart: base, PeriodEnd: base, TotalPnL: dec("0"),
		})
		require.NoError(t, err)
	})

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		latest, err := repos.Performance.GetLatest(ctx, "momentum")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 12, latest.TotalTrades)
		assert.Equal(t, "123.45000000", money.Encode(latest.TotalPnL))
		assert.Equal(t, models.PlatformBinance, *latest.Platform)
		assert.Equal(t, 2.5, *latest.ProfitFactor)
		assert.Nil(t, latest.MaxDrawdown)
		assert.Nil(t, latest.SharpeRatio)
		assert.Nil(t, latest.Symbol)

		history, err := repos.Performance.GetByStrategy(ctx, "momentum", 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Greater(t, history[0].ID, history[1].ID)

		none, err := repos.Performance.GetLatest(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestPerformanceRepository_RejectsInvertedPeriod(t *testing.T) {
	store := newTestStore(t)

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		_, err := repos.Performance.Create(ctx, models.PerformanceSnapshot{
			Strategy: "momentum", PeriodStart: base, PeriodEnd: base.Add(-time.Hour),
		})
		assert.ErrorIs(t, err, models.ErrValidationFailed)
	})
}
