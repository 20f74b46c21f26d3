// Package money formats integer amounts held in minor currency units.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Formatter renders amounts with a fixed number of minor digits and a symbol suffix.
type Formatter struct {
	Symbol     string
	MinorUnits int32
}

// NewFormatter builds a formatter; a negative exponent is treated as zero.
func NewFormatter(symbol string, minorUnits int32) Formatter {
	if minorUnits < 0 {
		minorUnits = 0
	}
	return Formatter{Symbol: strings.TrimSpace(symbol), MinorUnits: minorUnits}
}

// Format renders amount, e.g. 320 -> "320₽" or, with two minor units, 1050 -> "10.50€".
func (f Formatter) Format(amount int64) string {
	value := decimal.New(amount, -f.MinorUnits)
	return value.StringFixed(f.MinorUnits) + f.Symbol
}

// ParseMinor converts a decimal string such as "12.5" into minor units, rounding half away from zero.
func ParseMinor(raw string, minorUnits int32) (int64, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return ToMinor(value, minorUnits), nil
}

// ToMinor shifts value by minorUnits digits and rounds to a whole amount.
func ToMinor(value decimal.Decimal, minorUnits int32) int64 {
	if minorUnits < 0 {
		minorUnits = 0
	}
	return value.Shift(minorUnits).Round(0).IntPart()
}
