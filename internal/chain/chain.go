// Package chain is the read-only window onto an EVM chain used by the tools.
package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mattt/ethmcp/internal/metrics"
)

// Caller is the chain-call collaborator handed to every tool.
// Implementations never sign or broadcast.
type Caller interface {
	// Call performs a read-only contract invocation (eth_call at the latest block).
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	// BalanceAt returns the native balance of account in base units.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	// SignerAddress is the default sender and recipient for constructed transactions.
	SignerAddress() common.Address
}

// Client is a Caller backed by a JSON-RPC endpoint
type Client struct {
	eth    *ethclient.Client
	signer common.Address
	logger *slog.Logger
}

var _ Caller = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithLogger sets the logger used for per-call debug output
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Dial connects to the JSON-RPC endpoint at rawURL using httpClient for HTTP(S) transports.
func Dial(ctx context.Context, rawURL string, httpClient *http.Client, signer common.Address, opts ...ClientOption) (*Client, error) {
	if rawURL == "" {
		return nil, errors.New("rpc url is required")
	}

	var rpcOpts []rpc.ClientOption
	if httpClient != nil {
		rpcOpts = append(rpcOpts, rpc.WithHTTPClient(httpClient))
	}

	rpcClient, err := rpc.DialOptions(ctx, rawURL, rpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("error dialing %s: %w", redactURL(rawURL), err)
	}

	c := &Client{
		eth:    ethclient.NewClient(rpcClient),
		signer: signer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// Call implements Caller
func (c *Client) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	to := "<nil>"
	if msg.To != nil {
		to = msg.To.Hex()
	}
	c.logger.DebugContext(ctx, "eth_call", "to", to, "selector", selector(msg.Data))

	out, err := c.eth.CallContract(ctx, msg, nil)
	metrics.ObserveChainCall("eth_call", err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BalanceAt implements Caller
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	c.logger.DebugContext(ctx, "eth_getBalance", "account", account.Hex())

	balance, err := c.eth.BalanceAt(ctx, account, nil)
	metrics.ObserveChainCall("eth_getBalance", err)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// SignerAddress implements Caller
func (c *Client) SignerAddress() common.Address {
	return c.signer
}

// SignerFromKey derives the address of a hex-encoded secp256k1 private key.
// A leading 0x is accepted.
func SignerFromKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// ParseAddress parses a 20-byte hex address, with or without the 0x prefix
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func selector(data []byte) string {
	if len(data) < 4 {
		return hexutil.Encode(data)
	}
	return hexutil.Encode(data[:4])
}

// redactURL drops everything after the host, where providers put API keys
func redactURL(rawURL string) string {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "<redacted>"
	}
	host, _, _ := strings.Cut(rest, "/")
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	return scheme + "://" + host
}
