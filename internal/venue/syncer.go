// Package venue keeps the stored exchange rules in step with the venue.
package venue

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/repository"
)

// AuditActionSync is the audit action written after every successful sync.
const AuditActionSync = "exchange_rules.sync"

// RulesSource fetches the current trading rules from a venue.
type RulesSource interface {
	FetchExchangeRules(ctx context.Context) ([]models.ExchangeRules, error)
}

// Syncer copies venue rules into the ledger.
type Syncer struct {
	source RulesSource
	store  *database.Store
	logger *zap.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(source RulesSource, store *database.Store, logger *zap.Logger) *Syncer {
	return &Syncer{source: source, store: store, logger: logger}
}

type syncContext struct {
	Platforms []models.Platform `json:"platforms"`
	Symbols   int               `json:"symbols"`
}

// Sync fetches the rules and upserts them all in one session together with an
// audit entry. Any failure rolls the whole batch back. It returns the number
// of rule sets written.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	rules, err := s.source.FetchExchangeRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch exchange rules: %w", err)
	}

	err = s.store.Session(ctx, func(sess *database.Session) error {
		repos := repository.New(sess)
		seen := make(map[models.Platform]bool)
		var platforms []models.Platform
		for _, r := range rules {
			if _, err := repos.ExchangeRules.Upsert(sess.Context(), r); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", r.Platform, r.Symbol, err)
			}
			if !seen[r.Platform] {
				seen[r.Platform] = true
				platforms = append(platforms, r.Platform)
			}
		}

		extra, err := json.Marshal(syncContext{Platforms: platforms, Symbols: len(rules)})
		if err != nil {
			return err
		}
		_, err = repos.Audit.Log(sess.Context(), models.AuditEntry{
			Action:     AuditActionSync,
			EntityType: "exchange_rules",
			Context:    extra,
		})
		return err
	})
	if err != nil {
		s.logger.Error("Exchange rules sync failed", zap.Error(err))
		return 0, err
	}

	s.logger.Info("Exchange rules synced", zap.Int("symbols", len(rules)))
	return len(rules), nil
}
