package model

import "github.com/shopspring/decimal"

// Money is an amount in minor currency units (paise for INR).
type Money int64

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount in major units with two decimal places.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MoneyFromDecimal converts a major-unit amount, rounding half away from zero
// to the nearest minor unit.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(2).Round(0).IntPart())
}

// ParseMoney parses a major-unit amount such as "499" or "49.90".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return MoneyFromDecimal(d), nil
}
