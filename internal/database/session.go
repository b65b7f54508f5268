package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-ledger-go/internal/logger"
)

// Session is a single transactional unit of work. Repositories built on it
// share its transaction; nothing they write is visible to other sessions
// until the session commits.
type Session struct {
	id  string
	tx  *gorm.DB
	ctx context.Context
}

// ID returns the correlation id attached to the session's log lines.
func (s *Session) ID() string { return s.id }

// DB returns the transaction handle bound to the session's context.
func (s *Session) DB() *gorm.DB { return s.tx }

// Context returns the context the session was opened with.
func (s *Session) Context() context.Context { return s.ctx }

// Session runs fn inside a new transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; the error
// from fn is returned unchanged. Failures to begin or commit are reported as
// ErrStorageUnavailable.
func (s *Store) Session(ctx context.Context, fn func(*Session) error) (err error) {
	id := logger.CorrelationID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = logger.WithCorrelationID(ctx, id)
	}
	log := logger.WithContext(ctx, s.log)

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: begin session: %w", ErrStorageUnavailable, tx.Error)
	}
	log.Debug("Session opened")

	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn("Session rollback failed", zap.Error(rbErr))
		}
		if r := recover(); r != nil {
			log.Error("Session rolled back after panic", zap.Any("panic", r))
			panic(r)
		}
		log.Debug("Session rolled back", zap.Error(err))
	}()

	if err = fn(&Session{id: id, tx: tx, ctx: ctx}); err != nil {
		return err
	}
	if cErr := tx.Commit().Error; cErr != nil {
		err = fmt.Errorf("%w: commit session: %w", ErrStorageUnavailable, cErr)
		return err
	}
	done = true
	log.Debug("Session committed")
	return nil
}
