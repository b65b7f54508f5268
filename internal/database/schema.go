package database

import "time"

// Row types are the persisted shape of each entity. Every price, quantity and
// fee column is TEXT holding the exact decimal; see package money.

// TradeRow maps the trades table.
type TradeRow struct {
	ID         string     `gorm:"column:id;primaryKey;size:50"`
	Symbol     string     `gorm:"column:symbol;size:20;not null;index;index:ix_trades_platform_symbol,priority:2"`
	Side       string     `gorm:"column:side;size:10;not null"`
	EntryPrice string     `gorm:"column:entry_price;type:text;not null"`
	ExitPrice  *string    `gorm:"column:exit_price;type:text"`
	Quantity   string     `gorm:"column:quantity;type:text;not null"`
	Fees       string     `gorm:"column:fees;type:text;not null"`
	PnL        *string    `gorm:"column:pnl;type:text"`
	PnLPct     *float64   `gorm:"column:pnl_pct"`
	Platform   string     `gorm:"column:platform;size:20;not null;index;index:ix_trades_platform_symbol,priority:1"`
	Strategy   string     `gorm:"column:strategy;size:50;not null;index"`
	SignalID   *string    `gorm:"column:signal_id;size:50"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;index:ix_trades_created_at"`
	ClosedAt   *time.Time `gorm:"column:closed_at"`
}

func (TradeRow) TableName() string { return "trades" }

// CandleRow maps the ohlcv table. (symbol, timeframe, open_time, platform) is unique.
type CandleRow struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol    string    `gorm:"column:symbol;size:20;not null;uniqueIndex:uq_ohlcv,priority:1;index:ix_ohlcv_symbol_timeframe,priority:1"`
	Timeframe string    `gorm:"column:timeframe;size:10;not null;uniqueIndex:uq_ohlcv,priority:2;index:ix_ohlcv_symbol_timeframe,priority:2"`
	OpenTime  time.Time `gorm:"column:open_time;not null;uniqueIndex:uq_ohlcv,priority:3;index:ix_ohlcv_open_time"`
	Platform  string    `gorm:"column:platform;size:20;not null;uniqueIndex:uq_ohlcv,priority:4"`
	Open      string    `gorm:"column:open;type:text;not null"`
	High      string    `gorm:"column:high;type:text;not null"`
	Low       string    `gorm:"column:low;type:text;not null"`
	Close     string    `gorm:"column:close;type:text;not null"`
	Volume    string    `gorm:"column:volume;type:text;not null"`
}

func (CandleRow) TableName() string { return "ohlcv" }

// SignalRow maps the signals table.
type SignalRow struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol     string    `gorm:"column:symbol;size:20;not null;index"`
	Action     string    `gorm:"column:action;size:10;not null"`
	Confidence float64   `gorm:"column:confidence;not null"`
	Reasoning  string    `gorm:"column:reasoning;type:text"`
	Strategy   string    `gorm:"column:strategy;size:50;not null;index"`
	AIProvider *string   `gorm:"column:ai_provider;size:30"`
	Platform   string    `gorm:"column:platform;size:20;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index:ix_signals_created_at"`
}

func (SignalRow) TableName() string { return "signals" }

// ExchangeRulesRow maps the exchange_rules table, keyed by (symbol, platform).
type ExchangeRulesRow struct {
	Symbol          string    `gorm:"column:symbol;primaryKey;size:20"`
	Platform        string    `gorm:"column:platform;primaryKey;size:20"`
	MinQty          string    `gorm:"column:min_qty;type:text;not null"`
	MaxQty          string    `gorm:"column:max_qty;type:text;not null"`
	QtyStep         string    `gorm:"column:qty_step;type:text;not null"`
	QtyPrecision    int       `gorm:"column:qty_precision;not null"`
	PricePrecision  int       `gorm:"column:price_precision;not null"`
	MinNotional     string    `gorm:"column:min_notional;type:text;not null"`
	LeverageOptions string    `gorm:"column:leverage_options;type:text;not null"` // JSON array
	MakerFee        string    `gorm:"column:maker_fee;type:text;not null"`
	TakerFee        string    `gorm:"column:taker_fee;type:text;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (ExchangeRulesRow) TableName() string { return "exchange_rules" }

// PerformanceRow maps the strategy_performance table.
type PerformanceRow struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Strategy      string    `gorm:"column:strategy;size:50;not null;index"`
	Platform      *string   `gorm:"column:platform;size:20"`
	Symbol        *string   `gorm:"column:symbol;size:20"`
	TotalPnL      string    `gorm:"column:total_pnl;type:text;not null"`
	TotalPnLPct   float64   `gorm:"column:total_pnl_pct;not null"`
	WinRate       float64   `gorm:"column:win_rate;not null"`
	ProfitFactor  *float64  `gorm:"column:profit_factor"`
	MaxDrawdown   *float64  `gorm:"column:max_drawdown"`
	SharpeRatio   *float64  `gorm:"column:sharpe_ratio"`
	TotalTrades   int       `gorm:"column:total_trades;not null"`
	WinningTrades int       `gorm:"column:winning_trades;not null"`
	LosingTrades  int       `gorm:"column:losing_trades;not null"`
	PeriodStart   time.Time `gorm:"column:period_start;not null"`
	PeriodEnd     time.Time `gorm:"column:period_end;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (PerformanceRow) TableName() string { return "strategy_performance" }

// AuditRow maps the audit_log table. Rows are only ever inserted.
type AuditRow struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Action     string    `gorm:"column:action;size:50;not null;index"`
	EntityType string    `gorm:"column:entity_type;size:30;not null;index:ix_audit_log_entity,priority:1"`
	EntityID   *string   `gorm:"column:entity_id;size:50;index:ix_audit_log_entity,priority:2"`
	OldValue   *string   `gorm:"column:old_value;type:text"`
	NewValue   *string   `gorm:"column:new_value;type:text"`
	ExtraData  *string   `gorm:"column:extra_data;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index:ix_audit_log_created_at"`
}

func (AuditRow) TableName() string { return "audit_log" }

// tables lists every row type in creation order.
func tables() []interface{} {
	return []interface{}{
		&TradeRow{},
		&CandleRow{},
		&SignalRow{},
		&ExchangeRulesRow{},
		&PerformanceRow{},
		&AuditRow{},
	}
}
