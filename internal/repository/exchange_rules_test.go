package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
	"trade-ledger-go/internal/repository"
)

func sampleRules(symbol string, step string) models.ExchangeRules {
	return models.ExchangeRules{
		Symbol:          symbol,
		Platform:        models.PlatformBinance,
		MinQty:          dec("0.00001000"),
		MaxQty:          dec("9000.00000000"),
		QtyStep:         dec(step),
		QtyPrecision:    5,
		PricePrecision:  2,
		MinNotional:     dec("5.00000000"),
		LeverageOptions: []int{1, 5, 10},
		MakerFee:        dec("0.001"),
		TakerFee:        dec("0.001"),
		UpdatedAt:       base,
	}
}

func TestExchangeRulesRepository_UpsertReplaces(t *testing.T) {
	store := newTestStore(t)

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		_, err := repos.ExchangeRules.Upsert(ctx, sampleRules("BTCUSDT", "0.00001000"))
		require.NoError(t, err)

		updated := sampleRules("BTCUSDT", "0.00100000")
		updated.LeverageOptions = []int{1, 2}
		updated.UpdatedAt = base.AddDate(0, 0, 1)
		returned, err := repos.ExchangeRules.Upsert(ctx, updated)
		require.NoError(t, err)
		require.NotNil(t, returned)
		assert.True(t, updated.UpdatedAt.Equal(returned.UpdatedAt), "returned %s", returned.UpdatedAt)
		assert.Equal(t, "0.00100000", money.Encode(returned.QtyStep))
	})

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		all, err := repos.ExchangeRules.GetAll(ctx, models.PlatformBinance)
		require.NoError(t, err)
		require.Len(t, all, 1)

		got, err := repos.ExchangeRules.Get(ctx, "BTCUSDT", models.PlatformBinance)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "0.00100000", money.Encode(got.QtyStep))
		assert.Equal(t, "5.00000000", money.Encode(got.MinNotional))
		assert.Equal(t, []int{1, 2}, got.LeverageOptions)
		assert.True(t, base.AddDate(0, 0, 1).Equal(got.UpdatedAt), "stored %s", got.UpdatedAt)

		assert.NoError(t, got.ValidateQuantity(dec("0.005")))
		assert.ErrorIs(t, got.ValidateQuantity(dec("0.0055")), models.ErrStepMisaligned)
	})
}

func TestExchangeRulesRepository_GetAllAndMissing(t *testing.T) {
	store := newTestStore(t)

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		for _, symbol := range []string{"ETHUSDT", "BTCUSDT"} {
			_, err := repos.ExchangeRules.Upsert(ctx, sampleRules(symbol, "0.0001"))
			require.NoError(t, err)
		}
		forex := sampleRules("EURUSD", "0.01")
		forex.Platform = models.PlatformExness
		forex.LeverageOptions = nil
		_, err := repos.ExchangeRules.Upsert(ctx, forex)
		require.NoError(t, err)

		binance, err := repos.ExchangeRules.GetAll(ctx, models.PlatformBinance)
		require.NoError(t, err)
		require.Len(t, binance, 2)
		assert.Equal(t, "BTCUSDT", binance[0].Symbol)
		assert.Equal(t, "ETHUSDT", binance[1].Symbol)

		eur, err := repos.ExchangeRules.Get(ctx, "EURUSD", models.PlatformExness)
		require.NoError(t, err)
		require.NotNil(t, eur)
		assert.Empty(t, eur.LeverageOptions)

		missing, err := repos.ExchangeRules.Get(ctx, "EURUSD", models.PlatformBinance)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestExchangeRulesRepository_MalformedStoredValue(t *testing.T) {
	store := newTestStore(t)

	err := store.Session(context.Background(), func(s *database.Session) error {
		row := database.ExchangeRulesRow{
			Symbol: "BTCUSDT", Platform: "binance",
			MinQty: "abc", MaxQty: "1", QtyStep: "1", MinNotional: "1",
			LeverageOptions: "[]", MakerFee: "0", TakerFee: "0", UpdatedAt: base,
		}
		require.NoError(t, s.DB().Create(&row).Error)

		_, err := repository.NewExchangeRulesRepository(s).Get(s.Context(), "BTCUSDT", models.PlatformBinance)
		return err
	})
	assert.ErrorIs(t, err, money.ErrMalformedValue)
}

func TestExchangeRulesRepository_UpsertStampsZeroUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	rules := sampleRules("SOLUSDT", "0.01")
	rules.UpdatedAt = time.Time{}
	before := time.Now().UTC().Add(-time.Second)

	inSession(t, store, func(ctx context.Context, repos *repository.Repositories) {
		returned, err := repos.ExchangeRules.Upsert(ctx, rules)
		require.NoError(t, err)
		assert.True(t, returned.UpdatedAt.After(before))
		assert.True(t, rules.UpdatedAt.IsZero())

		got, err := repos.ExchangeRules.Get(ctx, "SOLUSDT", models.PlatformBinance)
		require.NoError(t, err)
		assert.True(t, returned.UpdatedAt.Equal(got.UpdatedAt))
	})
}
