package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-ledger-go/internal/config"
	"trade-ledger-go/internal/logger"
)

// ErrStorageUnavailable is returned when the store cannot be opened or a
// session cannot begin or commit.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Driver names the SQL dialect behind a Store.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store owns the connection pool for the ledger database.
type Store struct {
	db     *gorm.DB
	log    *zap.Logger
	driver Driver
}

// Open connects to the database named by cfg.DSN and creates any missing tables.
// Accepted forms: a bare sqlite path, sqlite://path, file:path, :memory:,
// postgres://... and postgresql://...
func Open(cfg config.Database, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dialector, driver, memory, err := dialectorFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	slow := time.Duration(cfg.SlowQueryMs) * time.Millisecond
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log, cfg.Echo, slow),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	// A shared in-memory database lives only while a connection to it is open.
	if cfg.ConnMaxLifetimeSeconds > 0 && !memory {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second)
	}

	s := &Store{db: db, log: log.With(zap.String("driver", string(driver))), driver: driver}
	if err := s.Ping(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	s.log.Info("Ledger store opened", zap.Bool("in_memory", memory))
	return s, nil
}

// Migrate creates missing tables and indexes. It is safe to call repeatedly.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(tables()...); err != nil {
		return fmt.Errorf("%w: failed to auto-migrate database: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Driver reports the dialect in use.
func (s *Store) Driver() Driver { return s.driver }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("Ledger store closed")
	return sqlDB.Close()
}

func dialectorFor(cfg config.Database) (gorm.Dialector, Driver, bool, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, "", false, errors.New("empty dsn")
	}

	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgres.Open(dsn), DriverPostgres, false, nil
	}

	path, memory, err := sqlitePath(dsn)
	if err != nil {
		return nil, "", false, err
	}
	if memory {
		path = "ledger-" + uuid.NewString()
	}
	return sqlite.Open(sqliteDSN(path, memory, cfg.BusyTimeoutMs)), DriverSQLite, memory, nil
}

// sqlitePath extracts the file path from a sqlite DSN and makes sure its
// directory exists.
func sqlitePath(dsn string) (string, bool, error) {
	path := dsn
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = strings.TrimPrefix(path, "sqlite://")
		// sqlite:///relative/path and sqlite:////absolute/path
		path = strings.TrimPrefix(path, "/")
	case strings.HasPrefix(path, "file:"):
		path = strings.TrimPrefix(path, "file:")
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if path == "" || path == ":memory:" {
		return ":memory:", true, nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("create database directory: %w", err)
		}
	}
	return path, false, nil
}

// sqliteDSN builds the driver DSN. In-memory databases are named and opened
// with a shared cache so that every pooled connection sees the same data.
func sqliteDSN(path string, memory bool, busyTimeoutMs int) string {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	params := []string{
		fmt.Sprintf("_busy_timeout=%d", busyTimeoutMs),
		"_foreign_keys=on",
	}
	if memory {
		params = append([]string{"mode=memory", "cache=shared"}, params...)
		return "file:" + path + "?" + strings.Join(params, "&")
	}
	params = append([]string{"_journal_mode=WAL"}, params...)
	return "file:" + path + "?" + strings.Join(params, "&")
}
