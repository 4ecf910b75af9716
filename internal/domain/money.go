package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a fixed-precision monetary amount. It serializes as a string with
// exactly two decimal places ("400.00") and accepts either a JSON number or
// string on input, matching what the API clients send.
type Money struct {
	decimal.Decimal
}

// NewMoney builds a Money from a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromString parses a decimal string such as "400" or "399.99".
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Decimal: d}, nil
}

// MoneyFromInt builds a Money from whole currency units.
func MoneyFromInt(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Decimal: m.Decimal.Add(other.Decimal)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Decimal: m.Decimal.Sub(other.Decimal)}
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.Decimal.LessThan(other.Decimal)
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m.Decimal.IsPositive()
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

// String renders the amount with two decimal places.
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON renders the amount as a two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Decimal.StringFixed(2) + `"`), nil
}

// UnmarshalJSON accepts either a bare JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	m.Decimal = d
	return nil
}
