// Package money converts exact decimal amounts to and from the text form used
// for storage and wire transfer. Binary floating point is never involved.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedValue is returned when stored or received text is not a decimal.
var ErrMalformedValue = errors.New("money: malformed decimal value")

// Encode returns the plain-notation text of d, keeping its scale so that
// "1.50" is written back as "1.50" rather than "1.5".
func Encode(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Decode parses plain decimal text of the form produced by Encode: an
// optional minus sign, digits, and an optional fraction. Exponents, a leading
// plus and bare points are rejected. "-0" decodes to zero and re-encodes
// without the sign.
func Decode(s string) (decimal.Decimal, error) {
	if !isPlain(s) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedValue, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", ErrMalformedValue, s, err)
	}
	return d, nil
}

// EncodeOptional maps an absent amount to an absent column.
func EncodeOptional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := Encode(*d)
	return &s
}

// DecodeOptional maps an absent column to an absent amount.
func DecodeOptional(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := Decode(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DecodeField is Decode with the column name attached to the error.
func DecodeField(field, s string) (decimal.Decimal, error) {
	d, err := Decode(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// DecodeOptionalField is DecodeOptional with the column name attached to the error.
func DecodeOptionalField(field string, s *string) (*decimal.Decimal, error) {
	d, err := DecodeOptional(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func isPlain(s string) bool {
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasPoint := strings.Cut(s, ".")
	if !allDigits(intPart) {
		return false
	}
	return !hasPoint || allDigits(frac)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
