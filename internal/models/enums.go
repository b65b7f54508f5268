package models

import (
	"fmt"

	"trade-ledger-go/internal/money"
)

// Platform is a trading venue.
type Platform string

const (
	PlatformBinance Platform = "binance"
	PlatformExness  Platform = "exness"
)

// Valid reports whether p is a known venue.
func (p Platform) Valid() bool {
	switch p {
	case PlatformBinance, PlatformExness:
		return true
	}
	return false
}

// ParsePlatform converts stored text back into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown platform %q", money.ErrMalformedValue, s)
	}
	return p, nil
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell:
		return true
	}
	return false
}

// ParseSide converts stored text back into a Side.
func ParseSide(s string) (Side, error) {
	side := Side(s)
	if !side.Valid() {
		return "", fmt.Errorf("%w: unknown side %q", money.ErrMalformedValue, s)
	}
	return side, nil
}

// SignalAction is what a signal recommends.
type SignalAction string

const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
	ActionHold SignalAction = "hold"
)

func (a SignalAction) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// ParseSignalAction converts stored text back into a SignalAction.
func ParseSignalAction(s string) (SignalAction, error) {
	a := SignalAction(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown signal action %q", money.ErrMalformedValue, s)
	}
	return a, nil
}
