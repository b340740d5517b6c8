package poolmath

import (
	"math"

	"github.com/shopspring/decimal"
)

// divPrecision is the number of fractional digits kept by every division.
const divPrecision int32 = 36

const maxSqrtIterations = 100

var (
	one          = decimal.NewFromInt(1)
	two          = decimal.NewFromInt(2)
	half         = decimal.New(5, -1)
	powPrecision = decimal.New(1, -18)
)

func quo(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, divPrecision)
}

// Pow computes base^exp for base >= 0 and exp >= 0. The integer part of exp is
// raised exactly; the fractional part uses a binomial series. Bases above one
// are inverted first and bases below one half are square-rooted until the
// series converges quickly.
func Pow(base, exp decimal.Decimal) decimal.Decimal {
	if exp.IsZero() {
		return one
	}
	if !base.IsPositive() {
		return decimal.Zero
	}
	if base.GreaterThan(one) {
		return quo(one, Pow(quo(one, base), exp))
	}

	integer := exp.Truncate(0)
	fractional := exp.Sub(integer)

	integerPow := powInt(base, integer.IntPart())
	if fractional.IsZero() {
		return integerPow
	}
	return integerPow.Mul(powFrac(base, fractional)).Round(divPrecision)
}

// powFrac computes base^exp for 0 < base <= 1 and 0 < exp < 1, using
// base^exp = sqrt(base)^(2*exp) to keep 1-base at or below one half.
func powFrac(base, exp decimal.Decimal) decimal.Decimal {
	if base.GreaterThanOrEqual(half) {
		return powApprox(base, exp, powPrecision)
	}
	return Pow(sqrt(base), exp.Add(exp))
}

// sqrt refines the float64 root with Newton steps.
func sqrt(d decimal.Decimal) decimal.Decimal {
	guess := decimal.NewFromFloat(math.Sqrt(d.InexactFloat64()))
	if !guess.IsPositive() {
		guess = one
	}
	for i := 0; i < maxSqrtIterations; i++ {
		next := quo(guess.Add(quo(d, guess)), two)
		if next.Equal(guess) {
			return next
		}
		guess = next
	}
	return guess
}

func powInt(base decimal.Decimal, n int64) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(divPrecision)
		}
		base = base.Mul(base).Round(divPrecision)
		n >>= 1
	}
	return result
}

// powApprox evaluates (1 - x)^a as sum_k C(a,k) (-x)^k for 0 <= exp < 1.
// Callers keep x <= 1/2 so the terms shrink at least geometrically.
func powApprox(base, exp, precision decimal.Decimal) decimal.Decimal {
	if exp.IsZero() {
		return one
	}

	x, xneg := absDifferenceWithSign(base, one)
	term := one
	sum := one
	negative := false

	for i := int64(1); term.GreaterThanOrEqual(precision); i++ {
		bigK := decimal.NewFromInt(i)
		c, cneg := absDifferenceWithSign(exp, bigK.Sub(one))
		term = quo(term.Mul(c.Mul(x)), bigK)
		if term.IsZero() {
			break
		}
		if xneg {
			negative = !negative
		}
		if cneg {
			negative = !negative
		}
		if negative {
			sum = sum.Sub(term)
		} else {
			sum = sum.Add(term)
		}
	}
	return sum
}

func absDifferenceWithSign(a, b decimal.Decimal) (decimal.Decimal, bool) {
	if a.GreaterThanOrEqual(b) {
		return a.Sub(b), false
	}
	return b.Sub(a), true
}
