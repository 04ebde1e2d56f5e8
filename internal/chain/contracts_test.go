package chain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/chain/chaintest"
)

var (
	token   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	account = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	pool    = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
)

func TestERC20Helpers(t *testing.T) {
	ctx := context.Background()
	caller := chaintest.New(account).
		Returns(token, chain.ERC20ABI, "balanceOf", big.NewInt(1_500_000)).
		Returns(token, chain.ERC20ABI, "decimals", uint8(6)).
		Returns(token, chain.ERC20ABI, "symbol", "USDC")

	balance, err := chain.BalanceOf(ctx, caller, token, account)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), balance.Int64())

	decimals, err := chain.Decimals(ctx, caller, token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	symbol, err := chain.Symbol(ctx, caller, token)
	require.NoError(t, err)
	assert.Equal(t, "USDC", symbol)

	assert.Len(t, caller.Log, 3)
}

func TestCallMethodErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	caller := chaintest.New(account).
		Fails(token, chain.ERC20ABI, "balanceOf", boom).
		ReturnsRaw(token, chain.ERC20ABI, "decimals", []byte{0x01})

	_, err := chain.BalanceOf(ctx, caller, token, account)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, chain.ErrDecode)

	_, err = chain.Decimals(ctx, caller, token)
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrDecode)

	_, err = chain.Symbol(ctx, caller, token)
	require.Error(t, err)
	assert.ErrorIs(t, err, chaintest.ErrUnexpectedCall)
}

func TestPoolHelpers(t *testing.T) {
	ctx := context.Background()
	factory := common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	sqrt, _ := new(big.Int).SetString("1771595571142957166518320255467520", 10)

	caller := chaintest.New(account).
		Returns(factory, chain.FactoryABI, "getPool", pool).
		Returns(pool, chain.PoolABI, "slot0", sqrt, big.NewInt(-201000), uint16(1), uint16(2), uint16(3), uint8(0), true).
		Returns(pool, chain.PoolABI, "token0", token)

	got, err := chain.GetPool(ctx, caller, factory, token, weth, 3000)
	require.NoError(t, err)
	assert.Equal(t, pool, got)

	price, err := chain.SqrtPriceX96(ctx, caller, pool)
	require.NoError(t, err)
	assert.Zero(t, sqrt.Cmp(price))

	token0, err := chain.Token0(ctx, caller, pool)
	require.NoError(t, err)
	assert.Equal(t, token, token0)
}

func TestQuoteRoundTrip(t *testing.T) {
	data, err := chain.PackQuote(chain.QuoteParams{
		TokenIn:           token,
		TokenOut:          account,
		AmountIn:          big.NewInt(1_000_000),
		Fee:               big.NewInt(500),
		SqrtPriceLimitX96: new(big.Int),
	})
	require.NoError(t, err)
	assert.Equal(t, chain.QuoterABI.Methods["quoteExactInputSingle"].ID, data[:4])

	out, err := chain.QuoterABI.Methods["quoteExactInputSingle"].Outputs.Pack(
		big.NewInt(999_000), big.NewInt(42), uint32(3), big.NewInt(85_000))
	require.NoError(t, err)

	quote, err := chain.UnpackQuote(out)
	require.NoError(t, err)
	assert.Equal(t, int64(999_000), quote.AmountOut.Int64())
	assert.Equal(t, uint32(3), quote.InitializedTicksCrossed)
	assert.Equal(t, int64(85_000), quote.GasEstimate.Int64())

	_, err = chain.UnpackQuote([]byte("revert"))
	assert.ErrorIs(t, err, chain.ErrDecode)
}

func TestExactInputSingleRoundTrip(t *testing.T) {
	data, err := chain.PackExactInputSingle(chain.ExactInputSingleParams{
		TokenIn:           token,
		TokenOut:          account,
		Fee:               big.NewInt(3000),
		Recipient:         account,
		Deadline:          big.NewInt(1),
		AmountIn:          big.NewInt(10),
		AmountOutMinimum:  big.NewInt(9),
		SqrtPriceLimitX96: new(big.Int),
	})
	require.NoError(t, err)
	// selector + 8 static words
	assert.Len(t, data, 4+8*32)

	out, err := chain.RouterABI.Methods["exactInputSingle"].Outputs.Pack(big.NewInt(77))
	require.NoError(t, err)
	amount, err := chain.UnpackExactInputSingle(out)
	require.NoError(t, err)
	assert.Equal(t, int64(77), amount.Int64())
}

func TestSignerFromKey(t *testing.T) {
	addr, err := chain.SignerFromKey("0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"), addr)

	_, err = chain.SignerFromKey("not-a-key")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := chain.ParseAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	require.NoError(t, err)
	assert.Equal(t, account, addr)

	_, err = chain.ParseAddress("d8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	assert.NoError(t, err)

	for _, bad := range []string{"invalid-address", "0x1234", "", "0xZZdA6BF26964aF9D7eEd9e03E53415D37aA96045"} {
		_, err := chain.ParseAddress(bad)
		assert.Error(t, err, bad)
	}
}
