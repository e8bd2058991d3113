// Package money provides the fixed-point Amount type used for every ledger value.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept by an Amount.
const Scale = 2

// MaxMinorUnits is the largest magnitude a ledger column holds, NUMERIC(14,2).
const MaxMinorUnits int64 = 99_999_999_999_999

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more than 2 fraction digits")
)

// Amount is an exact monetary value with two fraction digits.
// The zero value is 0.00 and ready to use.
type Amount struct {
	d decimal.Decimal
}

// Zero returns 0.00.
func Zero() Amount { return Amount{} }

// New builds an Amount from minor units, e.g. New(80050) == 800.50.
func New(minor int64) Amount {
	return Amount{d: decimal.New(minor, -Scale)}
}

// NewFromInt builds an Amount from whole units.
func NewFromInt(units int64) Amount {
	return Amount{d: decimal.NewFromInt(units)}
}

// NewFromDecimal converts a decimal, rejecting values with more than Scale fraction digits.
func NewFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Round(Scale)) {
		return Amount{}, ErrTooPrecise
	}
	return Amount{d: d}, nil
}

// NewFromString parses a decimal string such as "800", "800.5" or "800.50".
func NewFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewFromDecimal(d)
}

// MustParse is NewFromString for constants and tests.
func MustParse(s string) Amount {
	a, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Sum adds up all amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }

func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }

func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.GreaterThanOrEqual(b.d) }

func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) IsPositive() bool { return a.d.IsPositive() }

func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// ClampZero returns max(0, a).
func (a Amount) ClampZero() Amount {
	if a.d.IsNegative() {
		return Zero()
	}
	return a
}

// Max returns the larger of a and b.
func (a Amount) Max(b Amount) Amount {
	if a.d.LessThan(b.d) {
		return b
	}
	return a
}

var maxMinor = decimal.NewFromInt(MaxMinorUnits)

// MinorUnits returns the value in minor units (cents, paisa). ok is false
// when the amount is not a whole number of minor units or its magnitude
// exceeds MaxMinorUnits.
func (a Amount) MinorUnits() (minor int64, ok bool) {
	shifted := a.d.Shift(Scale)
	if !shifted.IsInteger() || shifted.Abs().GreaterThan(maxMinor) {
		return 0, false
	}
	return shifted.IntPart(), true
}

// Decimal exposes the underlying value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// String renders the amount with exactly two fraction digits.
func (a Amount) String() string { return a.d.StringFixed(Scale) }

// MarshalJSON encodes the amount as a quoted fixed-point string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
	}
	parsed, err := NewFromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	a.d = d.Round(Scale)
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}
