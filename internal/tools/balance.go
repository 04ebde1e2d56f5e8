package tools

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/fixedpoint"
)

const nativeDecimals uint8 = 18

// BalanceResult is returned by get_balance
type BalanceResult struct {
	Balance    string `json:"balance"`
	RawBalance string `json:"raw_balance"`
	Symbol     string `json:"symbol"`
	Decimals   uint8  `json:"decimals"`
}

type balanceArgs struct {
	Address      string  `json:"address"`
	TokenAddress *string `json:"token_address"`
}

// BalanceTool reports native or ERC-20 balances
type BalanceTool struct {
	network Network
}

var _ Tool = (*BalanceTool)(nil)

// NewBalanceTool creates the get_balance tool
func NewBalanceTool(network Network) *BalanceTool {
	return &BalanceTool{network: network}
}

func (t *BalanceTool) Name() string {
	return "get_balance"
}

func (t *BalanceTool) Description() string {
	return "Get the balance of " + t.network.nativeSymbol() + " or an ERC20 token for a specific address"
}

func (t *BalanceTool) InputSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"address":       addressProperty("The wallet address to check balance for"),
		"token_address": addressProperty("Optional ERC20 token contract address. If omitted, returns the native balance."),
	}, "address")
}

// Call fetches the balance. Token balances need balanceOf, decimals and symbol;
// any failed call fails the whole lookup.
func (t *BalanceTool) Call(ctx context.Context, client chain.Caller, raw json.RawMessage) (any, error) {
	var args balanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Address == "" {
		return nil, argumentErrorf("Missing address")
	}

	account, err := chain.ParseAddress(args.Address)
	if err != nil {
		return nil, argumentErrorf("%v", err)
	}

	if args.TokenAddress == nil {
		balance, err := client.BalanceAt(ctx, account)
		if err != nil {
			return nil, chainError(err)
		}
		return BalanceResult{
			Balance:    fixedpoint.ScaleDown(balance, nativeDecimals).String(),
			RawBalance: balance.String(),
			Symbol:     t.network.nativeSymbol(),
			Decimals:   nativeDecimals,
		}, nil
	}

	token, err := chain.ParseAddress(*args.TokenAddress)
	if err != nil {
		return nil, argumentErrorf("invalid token_address: %v", err)
	}

	balance, err := chain.BalanceOf(ctx, client, token, account)
	if err != nil {
		return nil, chainError(err)
	}
	decimals, err := chain.Decimals(ctx, client, token)
	if err != nil {
		return nil, chainError(err)
	}
	symbol, err := chain.Symbol(ctx, client, token)
	if err != nil {
		return nil, chainError(err)
	}

	return BalanceResult{
		Balance:    fixedpoint.ScaleDown(balance, decimals).String(),
		RawBalance: balance.String(),
		Symbol:     symbol,
		Decimals:   decimals,
	}, nil
}
