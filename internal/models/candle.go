package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar. Symbol, Timeframe, Timestamp and Platform together
// identify it.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Platform  Platform        `json:"platform"`
}

const (
	Timeframe1m = "1m"
	Timeframe5m = "5m"
	Timeframe1h = "1h"
	Timeframe4h = "4h"
	Timeframe1d = "1d"
)
