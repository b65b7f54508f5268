package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidationFailed is the parent of every order-rule violation.
	ErrValidationFailed = errors.New("validation failed")

	ErrBelowMinimum     = fmt.Errorf("%w: quantity below minimum", ErrValidationFailed)
	ErrAboveMaximum     = fmt.Errorf("%w: quantity above maximum", ErrValidationFailed)
	ErrStepMisaligned   = fmt.Errorf("%w: quantity not aligned to step", ErrValidationFailed)
	ErrBelowMinNotional = fmt.Errorf("%w: notional below minimum", ErrValidationFailed)
)

// ExchangeRules are the trading constraints a venue imposes on one symbol.
type ExchangeRules struct {
	Symbol          string          `json:"symbol"`
	Platform        Platform        `json:"platform"`
	MinQty          decimal.Decimal `json:"min_qty"`
	MaxQty          decimal.Decimal `json:"max_qty"`
	QtyStep         decimal.Decimal `json:"qty_step"`
	QtyPrecision    int             `json:"qty_precision"`
	PricePrecision  int             `json:"price_precision"`
	MinNotional     decimal.Decimal `json:"min_notional"`
	LeverageOptions []int           `json:"leverage_options"`
	MakerFee        decimal.Decimal `json:"maker_fee"`
	TakerFee        decimal.Decimal `json:"taker_fee"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ValidateQuantity checks qty against the min/max bounds and the step size.
// A non-positive step disables the step check.
func (r ExchangeRules) ValidateQuantity(qty decimal.Decimal) error {
	if qty.LessThan(r.MinQty) {
		return fmt.Errorf("%w: %s < %s", ErrBelowMinimum, qty, r.MinQty)
	}
	if qty.GreaterThan(r.MaxQty) {
		return fmt.Errorf("%w: %s > %s", ErrAboveMaximum, qty, r.MaxQty)
	}
	if r.QtyStep.IsPositive() && !qty.Mod(r.QtyStep).IsZero() {
		return fmt.Errorf("%w: %s %% %s != 0", ErrStepMisaligned, qty, r.QtyStep)
	}
	return nil
}

// RoundQuantity truncates qty toward zero to a multiple of the step size.
// It never rounds up, so the result never exceeds what the caller asked for.
func (r ExchangeRules) RoundQuantity(qty decimal.Decimal) decimal.Decimal {
	if !r.QtyStep.IsPositive() {
		return qty
	}
	steps, _ := qty.QuoRem(r.QtyStep, 0)
	return steps.Mul(r.QtyStep)
}

// RoundPrice truncates price to the venue's price precision.
func (r ExchangeRules) RoundPrice(price decimal.Decimal) decimal.Decimal {
	return RoundDecimal(price, r.PricePrecision)
}

// ValidateNotional checks that qty*price reaches the minimum notional.
func (r ExchangeRules) ValidateNotional(qty, price decimal.Decimal) error {
	notional := qty.Mul(price)
	if notional.LessThan(r.MinNotional) {
		return fmt.Errorf("%w: %s < %s", ErrBelowMinNotional, notional, r.MinNotional)
	}
	return nil
}

// SupportsLeverage reports whether the venue offers the given leverage.
func (r ExchangeRules) SupportsLeverage(leverage int) bool {
	for _, option := range r.LeverageOptions {
		if option == leverage {
			return true
		}
	}
	return false
}

// RoundDecimal truncates v to the given number of decimal places.
func RoundDecimal(v decimal.Decimal, places int) decimal.Decimal {
	if places < 0 {
		places = 0
	}
	return v.Truncate(int32(places))
}
