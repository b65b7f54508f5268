package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingDSN is returned when no database connection string is configured.
	ErrMissingDSN = errors.New("config: database.dsn is not set")

	// ErrInvalidRetention is returned when the candle retention window is negative.
	ErrInvalidRetention = errors.New("config: retention.candle_days must not be negative")

	// ErrInvalidRateLimit is returned when the exchange rate limit cannot form a token bucket.
	ErrInvalidRateLimit = errors.New("config: binance.rate_limit and binance.rate_window_seconds must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	Database    Database    `mapstructure:"database"`
	Logger      Logger      `mapstructure:"logger"`
	Binance     Binance     `mapstructure:"binance"`
	Retention   Retention   `mapstructure:"retention"`
	Performance Performance `mapstructure:"performance"`
}

// Database holds the configuration for the ledger store.
type Database struct {
	DSN                    string `mapstructure:"dsn"`
	Echo                   bool   `mapstructure:"echo"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `mapstructure:"conn_max_lifetime_seconds"`
	BusyTimeoutMs          int    `mapstructure:"busy_timeout_ms"`
	SlowQueryMs            int    `mapstructure:"slow_query_ms"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Binance holds the configuration for the public exchange rules feed.
type Binance struct {
	Enabled           bool    `mapstructure:"enabled"`
	Testnet           bool    `mapstructure:"testnet"`
	BaseURL           string  `mapstructure:"base_url"`
	RateLimit         int     `mapstructure:"rate_limit"`
	RateWindowSeconds float64 `mapstructure:"rate_window_seconds"`
	MakerFee          string  `mapstructure:"maker_fee"`
	TakerFee          string  `mapstructure:"taker_fee"`
}

// Retention controls pruning of old market data.
type Retention struct {
	CandleDays int `mapstructure:"candle_days"`
}

// Performance selects which strategy gets a snapshot on each run.
type Performance struct {
	Strategy   string `mapstructure:"strategy"`
	WindowDays int    `mapstructure:"window_days"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file next to the config directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	if err = loadDotEnv(filepath.Join(path, ".env"), ".env"); err != nil {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		// Defaults and environment alone are a valid configuration.
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "sqlite://data/trading.db")
	v.SetDefault("database.echo", false)
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_seconds", 3600)
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.slow_query_ms", 200)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("binance.enabled", false)
	v.SetDefault("binance.testnet", true)
	v.SetDefault("binance.rate_limit", 20)          // requests per window
	v.SetDefault("binance.rate_window_seconds", 1.0) // window length
	v.SetDefault("binance.maker_fee", "0.001")
	v.SetDefault("binance.taker_fee", "0.001")

	v.SetDefault("retention.candle_days", 90)

	v.SetDefault("performance.strategy", "")
	v.SetDefault("performance.window_days", 30)
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return ErrMissingDSN
	}
	if c.Retention.CandleDays < 0 {
		return ErrInvalidRetention
	}
	if c.Binance.Enabled && (c.Binance.RateLimit <= 0 || c.Binance.RateWindowSeconds <= 0) {
		return ErrInvalidRateLimit
	}
	return nil
}

func loadDotEnv(candidates ...string) error {
	for _, file := range candidates {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		return godotenv.Load(file)
	}
	return nil
}
