package pricing

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorDigits is the number of fractional digits kept in minor units.
const minorDigits = 2

// Money represents a monetary value stored in minor units. Amounts cross the
// JSON boundary as decimal numbers in major units (e.g. 12.50).
type Money int64

// Units converts a whole major-unit amount into Money.
func Units(major int64) Money {
	return Money(major * 100)
}

// FromDecimal converts a decimal major-unit amount into Money, rounding to
// the nearest minor unit.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(minorDigits).Round(0).IntPart())
}

// Parse reads a decimal string such as "12.5" into Money.
func Parse(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("pricing: parse amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorDigits)
}

// String formats the amount with two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits)
}

// MarshalJSON encodes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts JSON numbers, numeric strings and null.
func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = 0
		return nil
	}
	parsed, err := Parse(string(bytes.Trim(trimmed, `"`)))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
