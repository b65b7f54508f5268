package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-ledger-go/internal/config"
	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/repository"
)

var base = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open(config.Database{
		DSN:           filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:  4,
		BusyTimeoutMs: 5000,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// inSession runs fn in a committed session and fails the test on error.
func inSession(t *testing.T, store *database.Store, fn func(ctx context.Context, repos *repository.Repositories)) {
	t.Helper()
	err := store.Session(context.Background(), func(s *database.Session) error {
		fn(s.Context(), repository.New(s))
		return nil
	})
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }
