package fixedpoint

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad literal %s", s)
	return v
}

func TestScaleDown(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{raw: "0", decimals: 18, want: "0"},
		{raw: "1000000000000000000", decimals: 18, want: "1"},
		{raw: "1500000", decimals: 6, want: "1.5"},
		{raw: "123", decimals: 0, want: "123"},
		{raw: "1", decimals: 36, want: "0.000000000000000000000000000000000001"},
		{raw: "115792089237316195423570985008687907853269984665640564039457584007913129639935", decimals: 18,
			want: "115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ScaleDown(bigFromString(t, tt.raw), tt.decimals)
			assert.Equal(t, tt.want, got.String())
		})
	}

	assert.True(t, ScaleDown(nil, 6).IsZero())
}

func TestParseScaleDown(t *testing.T) {
	got, err := ParseScaleDown("2500000", 6)
	require.NoError(t, err)
	assert.Equal(t, "2.5", got.String())

	_, err = ParseScaleDown("12abc", 6)
	assert.Error(t, err)
}

func TestScaleDownThenUpIsLossless(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	limit := new(big.Int).Lsh(big.NewInt(1), 256)

	for i := 0; i < 200; i++ {
		raw := new(big.Int).Rand(rng, limit)
		for d := 0; d <= 40; d++ {
			scaled := ScaleDown(raw, uint8(d))
			back := ScaleUp(scaled, uint8(d))
			require.Zero(t, raw.Cmp(back), "raw=%s decimals=%d", raw, d)
		}
	}
}

func TestScaleUpTruncates(t *testing.T) {
	got := ScaleUp(decimal.RequireFromString("1.23456789"), 6)
	assert.Equal(t, "1234567", got.String())
}

func TestPow10(t *testing.T) {
	assert.Equal(t, "1000", Pow10(3).String())
	assert.Equal(t, "0.001", Pow10(-3).String())
	assert.Equal(t, "1", Pow10(0).String())

	for e := int32(-40); e <= 40; e++ {
		product := Pow10(e).Mul(Pow10(-e))
		assert.True(t, product.Equal(decimal.NewFromInt(1)), "exponent %d", e)
	}
}

func TestSqrtPriceX96ToRatio(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)

	// sqrt price of exactly 1.0
	assert.True(t, SqrtPriceX96ToRatio(q96).Equal(decimal.NewFromInt(1)))

	// sqrt price of 2.0 gives a ratio of 4
	two := new(big.Int).Lsh(q96, 1)
	assert.True(t, SqrtPriceX96ToRatio(two).Equal(decimal.NewFromInt(4)))

	// sqrt price of 0.5 gives 0.25
	half := new(big.Int).Rsh(q96, 1)
	assert.True(t, SqrtPriceX96ToRatio(half).Equal(decimal.RequireFromString("0.25")))

	assert.True(t, SqrtPriceX96ToRatio(nil).IsZero())
	assert.True(t, SqrtPriceX96ToRatio(new(big.Int)).IsZero())
}

func TestSqrtPriceX96ToRatioLargeInput(t *testing.T) {
	// Largest uint160.
	maxSqrt := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))
	ratio := SqrtPriceX96ToRatio(maxSqrt)

	// (2^160 / 2^96)^2 = 2^128, the result must be just below it.
	bound := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)
	assert.True(t, ratio.LessThan(bound))
	assert.True(t, ratio.GreaterThan(bound.Sub(decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 65), 0))))
}

func TestSqrtPriceX96ToRatioIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	limit := new(big.Int).Lsh(big.NewInt(1), 160)

	for i := 0; i < 500; i++ {
		a := new(big.Int).Rand(rng, limit)
		b := new(big.Int).Add(a, big.NewInt(1))
		require.True(t, SqrtPriceX96ToRatio(a).LessThan(SqrtPriceX96ToRatio(b)), "input %s", a)
	}
}

func TestApplyDecimalAdjustment(t *testing.T) {
	// WETH(18) as token0, USDC(6) as token1: raw ratio 3e-9 means 3000 USDC per WETH.
	raw := decimal.RequireFromString("0.000000003")
	assert.Equal(t, "3000", ApplyDecimalAdjustment(raw, 18, 6).String())

	// WBTC(8) as token0, WETH(18) as token1: raw 2e11 means 20 WETH per WBTC.
	raw = decimal.RequireFromString("200000000000")
	assert.Equal(t, "20", ApplyDecimalAdjustment(raw, 8, 18).String())

	assert.Equal(t, "1.5", ApplyDecimalAdjustment(decimal.RequireFromString("1.5"), 18, 18).String())
}

func TestInvert(t *testing.T) {
	got, err := Invert(decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Equal(t, "0.25", got.String())

	_, err = Invert(decimal.Zero)
	assert.Error(t, err)
}

func TestSlippageFloor(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		slippage string
		want     string
	}{
		{name: "zero slippage floors", expected: "1000.9", slippage: "0", want: "1000"},
		{name: "full slippage", expected: "123456", slippage: "100", want: "0"},
		{name: "half percent", expected: "3000000000", slippage: "0.5", want: "2985000000"},
		{name: "truncates", expected: "999", slippage: "0.5", want: "994"},
		{name: "over one hundred clamps", expected: "1000", slippage: "150", want: "0"},
		{name: "zero expected", expected: "0", slippage: "0.5", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SlippageFloor(decimal.RequireFromString(tt.expected), decimal.RequireFromString(tt.slippage))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSlippageFloorNeverExceedsFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 500; i++ {
		expected := decimal.New(rng.Int63(), -int32(rng.Intn(6)))
		slippage := decimal.New(int64(rng.Intn(20000)), -2)

		got := SlippageFloor(expected, slippage)
		floor := expected.Floor().BigInt()
		require.LessOrEqual(t, got.Cmp(floor), 0, "expected=%s slippage=%s", expected, slippage)
		require.GreaterOrEqual(t, got.Sign(), 0)
	}
}
