package fixedpoint

import "github.com/shopspring/decimal"

// MinOut bounds an amount the account receives. ok is false when slippage is
// zero, meaning the bound must be left out of the message.
func MinOut(estimate, slippage decimal.Decimal) (string, bool) {
	if slippage.IsZero() {
		return "", false
	}
	return Truncate(estimate.Mul(one.Sub(slippage))), true
}

// MaxIn bounds an amount the account supplies. ok is false when slippage is
// zero.
func MaxIn(estimate, slippage decimal.Decimal) (string, bool) {
	if slippage.IsZero() {
		return "", false
	}
	return Truncate(estimate.Mul(one.Add(slippage))), true
}
