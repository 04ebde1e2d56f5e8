package tools

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/shopspring/decimal"

	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/fixedpoint"
)

const (
	maxUint24 = 0xFFFFFF

	simulationNote = "Gas estimate is from Quoter. Router eth_call included; actual execution still depends on approvals/balance."
)

var defaultSlippage = decimal.New(5, -1)

// SwapResult is returned by swap_tokens
type SwapResult struct {
	EstimatedOutput   string           `json:"estimated_output"`
	MinimumOutput     string           `json:"minimum_output"`
	GasEstimate       string           `json:"gas_estimate_simulation"`
	Transaction       SwapTransaction  `json:"transaction"`
	RouterSimulation  RouterSimulation `json:"router_call_simulation"`
	SimulationNote    string           `json:"simulation_note"`
	QuoterDecodeError *string          `json:"quoter_decode_error"`
}

// SwapTransaction is the unsigned router call a caller would submit
type SwapTransaction struct {
	To          string `json:"to"`
	Data        string `json:"data"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// RouterSimulation is the outcome of eth_call against the router
type RouterSimulation struct {
	Status             string `json:"status"`
	SimulatedAmountOut string `json:"simulated_amount_out,omitempty"`
	Message            string `json:"message,omitempty"`
}

type swapArgs struct {
	FromToken         string           `json:"from_token"`
	ToToken           string           `json:"to_token"`
	Amount            string           `json:"amount"`
	Fee               *uint32          `json:"fee"`
	SlippageTolerance *decimal.Decimal `json:"slippage_tolerance"`
}

// SwapTool quotes and simulates a Uniswap V3 exactInputSingle swap.
// It never submits a transaction.
type SwapTool struct {
	network Network
}

var _ Tool = (*SwapTool)(nil)

// NewSwapTool creates the swap_tokens tool
func NewSwapTool(network Network) *SwapTool {
	return &SwapTool{network: network}
}

func (t *SwapTool) Name() string {
	return "swap_tokens"
}

func (t *SwapTool) Description() string {
	return "Simulate a token swap on Uniswap V3 and construct the transaction."
}

func (t *SwapTool) InputSchema() *jsonschema.Schema {
	return objectSchema(map[string]*jsonschema.Schema{
		"from_token": addressProperty("Address of the token to sell"),
		"to_token":   addressProperty("Address of the token to buy"),
		"amount": {
			Type:        "string",
			Description: "Amount to sell in base units (e.g. wei)",
			Pattern:     "^[0-9]+$",
		},
		"fee": {
			Type:        "integer",
			Description: "Pool fee tier in hundredths of a basis point (500, 3000, 10000). Defaults to 3000.",
		},
		"slippage_tolerance": {
			Type:        "number",
			Description: "Slippage tolerance in percent. Defaults to 0.5.",
		},
	}, "from_token", "to_token", "amount")
}

func (t *SwapTool) Call(ctx context.Context, client chain.Caller, raw json.RawMessage) (any, error) {
	var args swapArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if args.FromToken == "" {
		return nil, argumentErrorf("Missing from_token")
	}
	fromToken, err := chain.ParseAddress(args.FromToken)
	if err != nil {
		return nil, argumentErrorf("invalid from_token: %v", err)
	}
	if args.ToToken == "" {
		return nil, argumentErrorf("Missing to_token")
	}
	toToken, err := chain.ParseAddress(args.ToToken)
	if err != nil {
		return nil, argumentErrorf("invalid to_token: %v", err)
	}
	if args.Amount == "" {
		return nil, argumentErrorf("Missing amount")
	}
	amountIn, ok := gethmath.ParseBig256(strings.TrimSpace(args.Amount))
	if !ok || amountIn.Sign() < 0 {
		return nil, argumentErrorf("invalid amount %q", args.Amount)
	}

	fee := DefaultPoolFee
	if args.Fee != nil {
		fee = *args.Fee & maxUint24
	}
	feeBig := new(big.Int).SetUint64(uint64(fee))

	slippage := defaultSlippage
	if args.SlippageTolerance != nil {
		slippage = *args.SlippageTolerance
	}
	if slippage.Sign() < 0 {
		return nil, argumentErrorf("slippage_tolerance must not be negative")
	}

	quoteData, err := chain.PackQuote(chain.QuoteParams{
		TokenIn:           fromToken,
		TokenOut:          toToken,
		AmountIn:          amountIn,
		Fee:               feeBig,
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, argumentErrorf("cannot encode quote: %v", err)
	}

	quoter := t.network.Quoter
	quoteOut, err := client.Call(ctx, ethereum.CallMsg{To: &quoter, Data: quoteData})
	if err != nil {
		return nil, chainError(err)
	}

	// A quote that cannot be decoded still yields a transaction payload.
	amountOut, gasEstimate := new(big.Int), new(big.Int)
	var decodeError *string
	if quote, err := chain.UnpackQuote(quoteOut); err != nil {
		msg := err.Error()
		decodeError = &msg
	} else {
		amountOut, gasEstimate = quote.AmountOut, quote.GasEstimate
	}

	minimumOut := fixedpoint.SlippageFloor(decimal.NewFromBigInt(amountOut, 0), slippage)

	signer := client.SignerAddress()
	routerData, err := chain.PackExactInputSingle(chain.ExactInputSingleParams{
		TokenIn:           fromToken,
		TokenOut:          toToken,
		Fee:               feeBig,
		Recipient:         signer,
		Deadline:          gethmath.MaxBig256,
		AmountIn:          amountIn,
		AmountOutMinimum:  minimumOut,
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, argumentErrorf("cannot encode swap: %v", err)
	}

	router := t.network.Router
	return SwapResult{
		EstimatedOutput: amountOut.String(),
		MinimumOutput:   minimumOut.String(),
		GasEstimate:     gasEstimate.String(),
		Transaction: SwapTransaction{
			To:          router.Hex(),
			Data:        hexutil.Encode(routerData),
			Value:       "0",
			Description: "Uniswap V3 SwapRouter.exactInputSingle",
		},
		RouterSimulation:  t.simulate(ctx, client, ethereum.CallMsg{From: signer, To: &router, Data: routerData}),
		SimulationNote:    simulationNote,
		QuoterDecodeError: decodeError,
	}, nil
}

// simulate runs the router call read-only. A revert is reported, not returned.
func (t *SwapTool) simulate(ctx context.Context, client chain.Caller, msg ethereum.CallMsg) RouterSimulation {
	out, err := client.Call(ctx, msg)
	if err != nil {
		return RouterSimulation{Status: "error", Message: err.Error()}
	}

	amountOut, err := chain.UnpackExactInputSingle(out)
	if err != nil {
		return RouterSimulation{Status: "ok", Message: "call succeeded"}
	}
	return RouterSimulation{Status: "ok", SimulatedAmountOut: amountOut.String()}
}
