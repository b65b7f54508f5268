// Package repository maps ledger entities to their rows and back. Every
// repository is bound to one database.Session and shares its transaction.
package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"trade-ledger-go/internal/database"
)

// ErrDuplicateKey is returned when an insert collides with an existing identity.
var ErrDuplicateKey = errors.New("duplicate key")

const (
	defaultLimit       = 100
	defaultCandleLimit = 1000
)

// Repositories groups every repository bound to the same session.
type Repositories struct {
	Trades        *TradeRepository
	Candles       *CandleRepository
	Signals       *SignalRepository
	ExchangeRules *ExchangeRulesRepository
	Performance   *PerformanceRepository
	Audit         *AuditRepository
}

// New binds all repositories to s.
func New(s *database.Session) *Repositories {
	return &Repositories{
		Trades:        NewTradeRepository(s),
		Candles:       NewCandleRepository(s),
		Signals:       NewSignalRepository(s),
		ExchangeRules: NewExchangeRulesRepository(s),
		Performance:   NewPerformanceRepository(s),
		Audit:         NewAuditRepository(s),
	}
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

// storageError classifies an engine error returned while running op.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicateKey, err)
	}
	return fmt.Errorf("%w: %s: %w", database.ErrStorageUnavailable, op, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func stampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func mapRows[R any, E any](rows []R, fn func(R) (E, error)) ([]E, error) {
	out := make([]E, 0, len(rows))
	for _, row := range rows {
		e, err := fn(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
