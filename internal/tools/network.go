package tools

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultPoolFee is the 0.3% fee tier
const DefaultPoolFee uint32 = 3000

// Network holds the chain-specific addresses the tools read from
type Network struct {
	// NativeSymbol is the symbol of the chain's base currency, e.g. ETH.
	NativeSymbol string
	// PriceFeed is an aggregator reporting the native asset's USD price.
	PriceFeed common.Address
	// Factory is the Uniswap V3 factory used to locate pools.
	Factory common.Address
	// Quoter is the Uniswap V3 QuoterV2.
	Quoter common.Address
	// Router is the Uniswap V3 SwapRouter.
	Router common.Address
	// WrappedNative is the wrapped form of the native asset, e.g. WETH.
	WrappedNative common.Address
	// PoolFee is the fee tier used for price lookups.
	PoolFee uint32
	// Tokens maps upper-case symbols to token addresses.
	Tokens map[string]common.Address
}

// Mainnet returns the Ethereum mainnet deployment
func Mainnet() Network {
	return Network{
		NativeSymbol:  "ETH",
		PriceFeed:     common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"),
		Factory:       common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		Quoter:        common.HexToAddress("0x61fFE0149A332c47d847296F720a48855e9cb754"),
		Router:        common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
		WrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		PoolFee:       DefaultPoolFee,
		Tokens: map[string]common.Address{
			"USDC": common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			"WETH": common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			"WBTC": common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
		},
	}
}

func (n Network) nativeSymbol() string {
	if n.NativeSymbol == "" {
		return "ETH"
	}
	return strings.ToUpper(n.NativeSymbol)
}

func (n Network) poolFee() uint32 {
	if n.PoolFee == 0 {
		return DefaultPoolFee
	}
	return n.PoolFee
}

// lookupToken resolves a symbol from the built-in table
func (n Network) lookupToken(symbol string) (common.Address, bool) {
	addr, ok := n.Tokens[strings.ToUpper(symbol)]
	return addr, ok
}

// Defaults returns every built-in tool configured for network
func Defaults(network Network) []Tool {
	return []Tool{
		NewBalanceTool(network),
		NewPriceTool(network),
		NewSwapTool(network),
	}
}
