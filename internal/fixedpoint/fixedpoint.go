// Package fixedpoint converts between human decimal strings and integer
// minor-unit amounts. All conversions truncate toward zero.
package fixedpoint

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"liquidityTx/internal/model"
)

// DecPrecision is the number of fractional digits of the chain's Dec type.
const DecPrecision = 18

var (
	decimalPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	integerPattern = regexp.MustCompile(`^[0-9]+$`)

	one = decimal.NewFromInt(1)
)

// ParseDecimal parses a non-negative plain decimal string.
func ParseDecimal(input string) (decimal.Decimal, error) {
	if !decimalPattern.MatchString(input) {
		return decimal.Decimal{}, model.Errorf(model.CodeInvalidNumericFormat, "invalid decimal %q", input)
	}
	if strings.HasPrefix(input, ".") {
		input = "0" + input
	}
	input = strings.TrimSuffix(input, ".")
	d, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Decimal{}, model.Wrap(model.CodeInvalidNumericFormat, err, "parse decimal")
	}
	return d, nil
}

// ParseInteger parses a non-negative integer string.
func ParseInteger(input string) (decimal.Decimal, error) {
	if !integerPattern.MatchString(input) {
		return decimal.Decimal{}, model.Errorf(model.CodeInvalidNumericFormat, "invalid integer %q", input)
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Decimal{}, model.Wrap(model.CodeInvalidNumericFormat, err, "parse integer")
	}
	return d, nil
}

// ToInteger scales a human decimal by 10^exponent and truncates toward zero.
func ToInteger(input string, exponent int32) (string, error) {
	d, err := ParseDecimal(input)
	if err != nil {
		return "", err
	}
	return Truncate(d.Shift(exponent)), nil
}

// FromInteger renders an integer minor-unit amount as a human decimal.
func FromInteger(input string, exponent int32) (string, error) {
	d, err := ParseInteger(input)
	if err != nil {
		return "", err
	}
	return d.Shift(-exponent).String(), nil
}

// Truncate drops the fractional part of d and renders it as an integer string.
func Truncate(d decimal.Decimal) string {
	return d.Truncate(0).String()
}

// DecString renders d with exactly 18 fractional digits, truncating beyond.
func DecString(d decimal.Decimal) string {
	return d.Truncate(DecPrecision).StringFixed(DecPrecision)
}

// StripLeadingZerosAndDot removes leading '0' and '.' characters while the
// string is at least two characters long. Applied to a DecString it yields the
// Dec's integer atomics, except for values >= 1 which come back unchanged.
func StripLeadingZerosAndDot(s string) string {
	for len(s) >= 2 && (s[0] == '0' || s[0] == '.') {
		s = s[1:]
	}
	return s
}

// PercentToFraction turns "10" into 0.1. An empty string is zero.
func PercentToFraction(percent string) (decimal.Decimal, error) {
	if percent == "" {
		return decimal.Zero, nil
	}
	d, err := ParseDecimal(percent)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Shift(-2), nil
}

// ParseSlippage converts a percent into a slippage fraction in [0, 1).
func ParseSlippage(percent string) (decimal.Decimal, error) {
	f, err := PercentToFraction(percent)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if f.GreaterThanOrEqual(one) {
		return decimal.Decimal{}, model.Errorf(model.CodeInvalidSlippage, "slippage %s%% must be below 100%%", percent)
	}
	return f, nil
}
