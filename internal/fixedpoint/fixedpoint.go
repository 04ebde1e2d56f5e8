// Package fixedpoint converts between integer on-chain quantities and exact
// decimal amounts, and derives spot prices from Q64.96 square-root prices.
//
// All arithmetic is exact decimal arithmetic; nothing passes through float64.
package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of fractional digits kept when a price has to
// be rounded, i.e. after an inversion.
const PricePrecision = 36

var (
	one = decimal.New(1, 0)
	q32 = decimal.NewFromInt(1 << 32)
)

// ScaleDown returns raw / 10^decimals.
func ScaleDown(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ParseScaleDown is ScaleDown for a base-10 integer literal.
func ParseScaleDown(raw string, decimals uint8) (decimal.Decimal, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid integer literal %q", raw)
	}
	return ScaleDown(v, decimals), nil
}

// ScaleUp returns amount * 10^decimals truncated toward zero.
func ScaleUp(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// Pow10 returns 10^exp. Negative exponents give the exact reciprocal.
func Pow10(exp int32) decimal.Decimal {
	return decimal.New(1, exp)
}

// SqrtPriceX96ToRatio returns (sqrtPriceX96 / 2^96)^2, the raw token1 per
// token0 ratio of a pool.
//
// The 2^96 divisor is applied as three 2^32 steps before squaring so the
// squared operand stays small. Each step is exact: a quotient by 2^32k has at
// most 32k fractional digits.
func SqrtPriceX96ToRatio(sqrtPriceX96 *big.Int) decimal.Decimal {
	if sqrtPriceX96 == nil {
		return decimal.Zero
	}
	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0)
	sqrt = sqrt.DivRound(q32, 32).DivRound(q32, 64).DivRound(q32, 96)
	return sqrt.Mul(sqrt)
}

// ApplyDecimalAdjustment converts a raw pool ratio into human units:
// ratio * 10^(decimals0 - decimals1).
func ApplyDecimalAdjustment(ratio decimal.Decimal, decimals0, decimals1 uint8) decimal.Decimal {
	return ratio.Mul(Pow10(int32(decimals0) - int32(decimals1)))
}

// Invert returns 1/d rounded to PricePrecision digits.
func Invert(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, fmt.Errorf("cannot invert zero")
	}
	return one.DivRound(d, PricePrecision), nil
}

// SlippageFloor returns floor(expected * (1 - slippagePercent/100)).
//
// The result is truncated, never rounded up, and is clamped at zero when the
// slippage exceeds 100 percent.
func SlippageFloor(expected, slippagePercent decimal.Decimal) *big.Int {
	factor := one.Sub(slippagePercent.Shift(-2))
	if factor.Sign() <= 0 || expected.Sign() <= 0 {
		return new(big.Int)
	}
	return expected.Mul(factor).Truncate(0).BigInt()
}
