// Package logger builds the process logger and adapts it for the storage layer.
package logger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ErrUnknownFormat is returned for a format other than json or console.
var ErrUnknownFormat = errors.New("logger: unknown format")

// NewLogger creates the ledger's zap.Logger. Every entry carries
// component=ledger; stack traces are attached from error level up.
// An empty level means info and an empty format means console.
func NewLogger(level string, format string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch format {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.InitialFields = map[string]interface{}{"component": "ledger"}

	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// WithContext returns log annotated with the correlation id carried by ctx,
// or log itself when there is none.
func WithContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	if id := CorrelationID(ctx); id != "" {
		return log.With(zap.String("correlation_id", id))
	}
	return log
}
