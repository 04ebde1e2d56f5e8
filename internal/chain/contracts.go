package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrDecode marks a return value that could not be ABI-decoded
var ErrDecode = errors.New("abi decode failed")

const (
	erc20JSON = `[
		{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
	]`

	priceFeedJSON = `[
		{"type":"function","name":"latestAnswer","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"int256"}]},
		{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
	]`

	factoryJSON = `[
		{"type":"function","name":"getPool","stateMutability":"view","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],"outputs":[{"name":"pool","type":"address"}]}
	]`

	poolJSON = `[
		{"type":"function","name":"slot0","stateMutability":"view","inputs":[],"outputs":[
			{"name":"sqrtPriceX96","type":"uint160"},
			{"name":"tick","type":"int24"},
			{"name":"observationIndex","type":"uint16"},
			{"name":"observationCardinality","type":"uint16"},
			{"name":"observationCardinalityNext","type":"uint16"},
			{"name":"feeProtocol","type":"uint8"},
			{"name":"unlocked","type":"bool"}]},
		{"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
	]`

	quoterJSON = `[
		{"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable",
		 "inputs":[{"name":"params","type":"tuple","components":[
			{"name":"tokenIn","type":"address"},
			{"name":"tokenOut","type":"address"},
			{"name":"amountIn","type":"uint256"},
			{"name":"fee","type":"uint24"},
			{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
		 "outputs":[
			{"name":"amountOut","type":"uint256"},
			{"name":"sqrtPriceX96After","type":"uint160"},
			{"name":"initializedTicksCrossed","type":"uint32"},
			{"name":"gasEstimate","type":"uint256"}]}
	]`

	routerJSON = `[
		{"type":"function","name":"exactInputSingle","stateMutability":"payable",
		 "inputs":[{"name":"params","type":"tuple","components":[
			{"name":"tokenIn","type":"address"},
			{"name":"tokenOut","type":"address"},
			{"name":"fee","type":"uint24"},
			{"name":"recipient","type":"address"},
			{"name":"deadline","type":"uint256"},
			{"name":"amountIn","type":"uint256"},
			{"name":"amountOutMinimum","type":"uint256"},
			{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
		 "outputs":[{"name":"amountOut","type":"uint256"}]}
	]`
)

// Contract ABIs
var (
	ERC20ABI     = mustParseABI("erc20", erc20JSON)
	PriceFeedABI = mustParseABI("price feed", priceFeedJSON)
	FactoryABI   = mustParseABI("factory", factoryJSON)
	PoolABI      = mustParseABI("pool", poolJSON)
	QuoterABI    = mustParseABI("quoter", quoterJSON)
	RouterABI    = mustParseABI("router", routerJSON)
)

func mustParseABI(name, definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid %s ABI: %v", name, err))
	}
	return parsed
}

// QuoteParams mirrors QuoterV2.QuoteExactInputSingleParams
type QuoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Quote is the decoded result of quoteExactInputSingle
type Quote struct {
	AmountOut               *big.Int
	SqrtPriceX96After       *big.Int
	InitializedTicksCrossed uint32
	GasEstimate             *big.Int
}

// ExactInputSingleParams mirrors SwapRouter.ExactInputSingleParams
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// CallMethod packs method with args, calls it on to and unpacks the return values.
// Transport failures are returned as-is; unpacking failures wrap ErrDecode.
func CallMethod(ctx context.Context, c Caller, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("error encoding %s: %w", method, err)
	}

	out, err := c.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", method, to.Hex(), err)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
	}
	return values, nil
}

func decodeErr(method string, v interface{}) error {
	return fmt.Errorf("%w: %s: unexpected return type %T", ErrDecode, method, v)
}

func single[T any](values []interface{}, method string) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("%w: %s: empty return data", ErrDecode, method)
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, decodeErr(method, values[0])
	}
	return v, nil
}

// BalanceOf returns the ERC-20 balance of account
func BalanceOf(ctx context.Context, c Caller, token, account common.Address) (*big.Int, error) {
	values, err := CallMethod(ctx, c, ERC20ABI, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return single[*big.Int](values, "balanceOf")
}

// Decimals returns the decimals() of an ERC-20 token or price feed
func Decimals(ctx context.Context, c Caller, contract common.Address) (uint8, error) {
	values, err := CallMethod(ctx, c, ERC20ABI, contract, "decimals")
	if err != nil {
		return 0, err
	}
	return single[uint8](values, "decimals")
}

// Symbol returns the ERC-20 symbol()
func Symbol(ctx context.Context, c Caller, token common.Address) (string, error) {
	values, err := CallMethod(ctx, c, ERC20ABI, token, "symbol")
	if err != nil {
		return "", err
	}
	return single[string](values, "symbol")
}

// LatestAnswer returns a price feed's latestAnswer()
func LatestAnswer(ctx context.Context, c Caller, feed common.Address) (*big.Int, error) {
	values, err := CallMethod(ctx, c, PriceFeedABI, feed, "latestAnswer")
	if err != nil {
		return nil, err
	}
	return single[*big.Int](values, "latestAnswer")
}

// GetPool returns the factory's pool for a token pair and fee tier.
// The zero address means no pool exists.
func GetPool(ctx context.Context, c Caller, factory, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	values, err := CallMethod(ctx, c, FactoryABI, factory, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return single[common.Address](values, "getPool")
}

// SqrtPriceX96 returns the sqrtPriceX96 member of a pool's slot0()
func SqrtPriceX96(ctx context.Context, c Caller, pool common.Address) (*big.Int, error) {
	values, err := CallMethod(ctx, c, PoolABI, pool, "slot0")
	if err != nil {
		return nil, err
	}
	return single[*big.Int](values, "slot0")
}

// Token0 returns the first-ordered asset of a pool
func Token0(ctx context.Context, c Caller, pool common.Address) (common.Address, error) {
	values, err := CallMethod(ctx, c, PoolABI, pool, "token0")
	if err != nil {
		return common.Address{}, err
	}
	return single[common.Address](values, "token0")
}

// PackQuote encodes a quoteExactInputSingle call
func PackQuote(params QuoteParams) ([]byte, error) {
	return QuoterABI.Pack("quoteExactInputSingle", params)
}

// UnpackQuote decodes quoteExactInputSingle return data
func UnpackQuote(data []byte) (Quote, error) {
	values, err := QuoterABI.Unpack("quoteExactInputSingle", data)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: quoteExactInputSingle: %v", ErrDecode, err)
	}
	if len(values) != 4 {
		return Quote{}, fmt.Errorf("%w: quoteExactInputSingle: got %d values", ErrDecode, len(values))
	}

	var q Quote
	var ok bool
	if q.AmountOut, ok = values[0].(*big.Int); !ok {
		return Quote{}, decodeErr("quoteExactInputSingle", values[0])
	}
	if q.SqrtPriceX96After, ok = values[1].(*big.Int); !ok {
		return Quote{}, decodeErr("quoteExactInputSingle", values[1])
	}
	if q.InitializedTicksCrossed, ok = values[2].(uint32); !ok {
		return Quote{}, decodeErr("quoteExactInputSingle", values[2])
	}
	if q.GasEstimate, ok = values[3].(*big.Int); !ok {
		return Quote{}, decodeErr("quoteExactInputSingle", values[3])
	}
	return q, nil
}

// PackExactInputSingle encodes a SwapRouter exactInputSingle call
func PackExactInputSingle(params ExactInputSingleParams) ([]byte, error) {
	return RouterABI.Pack("exactInputSingle", params)
}

// UnpackExactInputSingle decodes the amountOut returned by exactInputSingle
func UnpackExactInputSingle(data []byte) (*big.Int, error) {
	values, err := RouterABI.Unpack("exactInputSingle", data)
	if err != nil {
		return nil, fmt.Errorf("%w: exactInputSingle: %v", ErrDecode, err)
	}
	return single[*big.Int](values, "exactInputSingle")
}
