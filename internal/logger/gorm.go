package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL logging through zap. Statements are only echoed
// when echo is on; failures and slow queries are always reported.
type GormLogger struct {
	log           *zap.Logger
	echo          bool
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a gorm logger backed by log.
func NewGormLogger(log *zap.Logger, echo bool, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		log:           log.Named("sql"),
		echo:          echo,
		slowThreshold: slowThreshold,
	}
}

// LogMode switches echo on for Info level and above verbosity.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.echo = level >= gormlogger.Info
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.echo {
		l.with(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.with(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.with(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.with(ctx).Warn("SQL statement failed", append(fields, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		l.with(ctx).Warn("Slow SQL statement", fields...)
	case l.echo:
		l.with(ctx).Debug("SQL statement", fields...)
	}
}

func (l *GormLogger) with(ctx context.Context) *zap.Logger {
	return WithContext(ctx, l.log)
}
