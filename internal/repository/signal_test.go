package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/repository"
)

func sampleSignal(symbol string, action models.SignalAction, at time.Time) models.Signal {
	return models.Signal{
		Symbol:     symbol,
		Action:     action,
		Confidence: 0.8,
		Reasoning:  "RSI oversold",
		Strategy:   "momentum",
		AIProvider: strPtr("claude"),
		Platform:   models.PlatformBinance,
		CreatedAt:  at,
	}
}

func TestSignalRepository_CreateAndGetRecent(t *testing.T) {
	store := newTestStore(t)

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		var last int64
		for i, symbol := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT"} {
			id, err := repos.Signals.Create(ctx, sampleSignal(symbol, models.ActionBuy, base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
			assert.Greater(t, id, last)
			last = id
		}
	})

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		all, err := repos.Signals.GetRecent(ctx, "", "", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, base.Add(2*time.Minute).Equal(all[0].CreatedAt))
		assert.Equal(t, "claude", *all[0].AIProvider)
		assert.Equal(t, models.ActionBuy, all[0].Action)

		btc, err := repos.Signals.GetRecent(ctx, "BTCUSDT", models.PlatformBinance, 1)
		require.NoError(t, err)
		require.Len(t, btc, 1)
		assert.Equal(t, "BTCUSDT", btc[0].Symbol)
		assert.True(t, base.Add(2*time.Minute).Equal(btc[0].CreatedAt))

		exness, err := repos.Signals.GetRecent(ctx, "", models.PlatformExness, 10)
		require.NoError(t, err)
		assert.Empty(t, exness)
	})
}

func TestSignalRepository_RejectsBadInput(t *testing.T) {
	store := newTestStore(t)

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		tooSure := sampleSignal("BTCUSDT", models.ActionSell, base)
		tooSure.Confidence = 1.5
		_, err := repos.Signals.Create(ctx, tooSure)
		assert.ErrorIs(t, err, models.ErrValidationFailed)

		unknown := sampleSignal("BTCUSDT", "short", base)
		_, err = repos.Signals.Create(ctx, unknown)
		assert.Error(t, err)
	})
}
