package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-ledger-go/internal/binance"
	"trade-ledger-go/internal/config"
	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/logger"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/performance"
	"trade-ledger-go/internal/repository"
	"trade-ledger-go/internal/venue"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithCorrelationID(ctx, uuid.NewString())

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Ledger run failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Ledger run finished")
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("Database connection successful and schema migrated.")

	if cfg.Binance.Enabled {
		if err := syncRules(ctx, cfg, store, log); err != nil {
			return err
		}
	}

	if cfg.Retention.CandleDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Retention.CandleDays)
		if err := pruneCandles(ctx, store, cutoff, log); err != nil {
			return err
		}
	}

	if cfg.Performance.Strategy != "" {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -cfg.Performance.WindowDays)
		snap, err := performance.Record(ctx, store, cfg.Performance.Strategy, start, end)
		if err != nil {
			return fmt.Errorf("record performance: %w", err)
		}
		log.Info("Performance snapshot recorded",
			zap.String("strategy", snap.Strategy),
			zap.Int64("id", snap.ID),
			zap.Int("trades", snap.TotalTrades),
			zap.String("total_pnl", snap.TotalPnL.String()),
		)
	}
	return nil
}

func syncRules(ctx context.Context, cfg config.Config, store *database.Store, log *zap.Logger) error {
	restClient, err := binance.NewRestClient(&cfg.Binance, log)
	if err != nil {
		return fmt.Errorf("binance client: %w", err)
	}
	serverTime, err := restClient.GetServerTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Binance API: %w", err)
	}
	skew := time.Since(time.UnixMilli(serverTime))
	log.Info("Successfully connected to Binance API.", zap.Duration("clock_skew", skew))

	if _, err := venue.NewSyncer(restClient, store, log).Sync(ctx); err != nil {
		return err
	}
	return nil
}

func pruneCandles(ctx context.Context, store *database.Store, cutoff time.Time, log *zap.Logger) error {
	var deleted int64
	err := store.Session(ctx, func(s *database.Session) error {
		repos := repository.New(s)
		var err error
		if deleted, err = repos.Candles.DeleteOld(s.Context(), cutoff); err != nil {
			return err
		}
		extra, err := json.Marshal(map[string]any{"before": cutoff, "deleted": deleted})
		if err != nil {
			return err
		}
		_, err = repos.Audit.Log(s.Context(), models.AuditEntry{
			Action:     "ohlcv.prune",
			EntityType: "ohlcv",
			Context:    extra,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("prune candles: %w", err)
	}
	log.Info("Old candles pruned", zap.Time("before", cutoff), zap.Int64("deleted", deleted))
	return nil
}
