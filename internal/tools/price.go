package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/shopspring/decimal"

	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/fixedpoint"
)

// Price sources
const (
	SourceOracle = "Chainlink Oracle"
	SourcePool   = "Uniswap V3 (Derived from ETH pair)"
)

// PriceResult is returned by get_token_price
type PriceResult struct {
	Symbol      string          `json:"symbol"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
	PriceETH    decimal.Decimal `json:"price_eth"`
	Source      string          `json:"source"`
	PoolFee     uint32          `json:"pool_fee,omitempty"`
	PoolAddress string          `json:"pool_address,omitempty"`
}

type priceArgs struct {
	TokenSymbol  string  `json:"token_symbol"`
	TokenAddress *string `json:"token_address"`
}

// PriceTool prices the native asset from an oracle and other tokens from
// their Uniswap V3 pool against the wrapped native asset.
type PriceTool struct {
	network Network
}

var _ Tool = (*PriceTool)(nil)

// NewPriceTool creates the get_token_price tool
func NewPriceTool(network Network) *PriceTool {
	return &PriceTool{network: network}
}

func (t *PriceTool) Name() string {
	return "get_token_price"
}

func (t *PriceTool) Description() string {
	return "Get the current price of a token in USD or " + t.network.nativeSymbol() +
		". Uses Chainlink for " + t.network.nativeSymbol() + "/USD and Uniswap V3 for others."
}

func (t *PriceTool) InputSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"token_symbol":  stringProperty("Symbol of the token (e.g., ETH, USDC, WBTC)"),
		"token_address": addressProperty("Address of the token (required for tokens other than USDC, WETH and WBTC)"),
	}, "token_symbol")
}

func (t *PriceTool) Call(ctx context.Context, client chain.Caller, raw json.RawMessage) (any, error) {
	var args priceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(args.TokenSymbol))
	if symbol == "" {
		return nil, argumentErrorf("Missing token_symbol")
	}

	if symbol == t.network.nativeSymbol() {
		usd, err := t.nativePriceUSD(ctx, client)
		if err != nil {
			return nil, err
		}
		return PriceResult{
			Symbol:   symbol,
			PriceUSD: usd,
			PriceETH: decimal.NewFromInt(1),
			Source:   SourceOracle,
		}, nil
	}

	token, err := t.resolveToken(symbol, args.TokenAddress)
	if err != nil {
		return nil, err
	}

	if token == t.network.WrappedNative {
		usd, err := t.nativePriceUSD(ctx, client)
		if err != nil {
			return nil, err
		}
		return PriceResult{
			Symbol:   symbol,
			PriceUSD: usd,
			PriceETH: decimal.NewFromInt(1),
			Source:   SourceOracle,
		}, nil
	}

	fee := t.network.poolFee()
	pool, err := chain.GetPool(ctx, client, t.network.Factory, token, t.network.WrappedNative, fee)
	if err != nil {
		return nil, chainError(err)
	}
	if pool == (common.Address{}) {
		return nil, notFoundf("No Uniswap V3 pool found for %s/W%s (%s%%)",
			symbol, t.network.nativeSymbol(), decimal.New(int64(fee), -4).String())
	}

	priceETH, err := t.poolPrice(ctx, client, pool, token)
	if err != nil {
		return nil, err
	}

	usd, err := t.nativePriceUSD(ctx, client)
	if err != nil {
		return nil, err
	}

	return PriceResult{
		Symbol:      symbol,
		PriceUSD:    priceETH.Mul(usd).Round(fixedpoint.PricePrecision),
		PriceETH:    priceETH.Round(fixedpoint.PricePrecision),
		Source:      SourcePool,
		PoolFee:     fee,
		PoolAddress: pool.Hex(),
	}, nil
}

// resolveToken prefers the explicit address and otherwise only accepts a
// symbol from the built-in table.
func (t *PriceTool) resolveToken(symbol string, explicit *string) (common.Address, error) {
	if explicit != nil {
		addr, err := chain.ParseAddress(*explicit)
		if err != nil {
			return common.Address{}, argumentErrorf("invalid token_address: %v", err)
		}
		return addr, nil
	}

	addr, ok := t.network.lookupToken(symbol)
	if !ok {
		return common.Address{}, argumentErrorf("Unknown token symbol %s. Please provide token_address.", symbol)
	}
	return addr, nil
}

// poolPrice returns the price of token in units of the wrapped native asset.
// Pool prices are always token1 per token0, so the ratio is inverted when
// the wrapped native asset is token0.
func (t *PriceTool) poolPrice(ctx context.Context, client chain.Caller, pool, token common.Address) (decimal.Decimal, error) {
	sqrtPriceX96, err := chain.SqrtPriceX96(ctx, client, pool)
	if err != nil {
		return decimal.Zero, chainError(err)
	}
	token0, err := chain.Token0(ctx, client, pool)
	if err != nil {
		return decimal.Zero, chainError(err)
	}
	tokenDecimals, err := chain.Decimals(ctx, client, token)
	if err != nil {
		return decimal.Zero, chainError(err)
	}
	nativeDecimals, err := chain.Decimals(ctx, client, t.network.WrappedNative)
	if err != nil {
		return decimal.Zero, chainError(err)
	}

	if sqrtPriceX96.Sign() == 0 {
		return decimal.Zero, notFoundf("pool %s has no initialized price", pool.Hex())
	}

	ratio := fixedpoint.SqrtPriceX96ToRatio(sqrtPriceX96)
	if token0 == token {
		return fixedpoint.ApplyDecimalAdjustment(ratio, tokenDecimals, nativeDecimals), nil
	}

	adjusted := fixedpoint.ApplyDecimalAdjustment(ratio, nativeDecimals, tokenDecimals)
	inverted, err := fixedpoint.Invert(adjusted)
	if err != nil {
		return decimal.Zero, notFoundf("pool %s has no usable price", pool.Hex())
	}
	return inverted, nil
}

// nativePriceUSD reads latestAnswer and decimals from the price feed
func (t *PriceTool) nativePriceUSD(ctx context.Context, client chain.Caller) (decimal.Decimal, error) {
	answer, err := chain.LatestAnswer(ctx, client, t.network.PriceFeed)
	if err != nil {
		return decimal.Zero, chainError(err)
	}
	decimals, err := chain.Decimals(ctx, client, t.network.PriceFeed)
	if err != nil {
		return decimal.Zero, chainError(err)
	}
	return fixedpoint.ScaleDown(answer, decimals), nil
}
