// Package chaintest provides an in-memory chain.Caller for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mattt/ethmcp/internal/chain"
)

// ErrUnexpectedCall is returned for calls with no registered response
var ErrUnexpectedCall = errors.New("unexpected call")

type key struct {
	to       common.Address
	selector [4]byte
}

type response struct {
	data []byte
	err  error
}

// Caller answers eth_call requests from a table keyed by target and method selector
type Caller struct {
	mu       sync.Mutex
	calls    map[key]response
	balances map[common.Address]*big.Int
	signer   common.Address

	// Log records every call in order as "to:selector" strings.
	Log []string
}

var _ chain.Caller = (*Caller)(nil)

// New creates an empty Caller whose signer address is signer
func New(signer common.Address) *Caller {
	return &Caller{
		calls:    make(map[key]response),
		balances: make(map[common.Address]*big.Int),
		signer:   signer,
	}
}

func selectorOf(parsed abi.ABI, method string) [4]byte {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown method %s", method))
	}
	var sel [4]byte
	copy(sel[:], m.ID)
	return sel
}

// Returns registers the ABI-encoded outputs of method on to
func (c *Caller) Returns(to common.Address, parsed abi.ABI, method string, outputs ...interface{}) *Caller {
	data, err := parsed.Methods[method].Outputs.Pack(outputs...)
	if err != nil {
		panic(fmt.Sprintf("chaintest: packing %s outputs: %v", method, err))
	}
	return c.ReturnsRaw(to, parsed, method, data)
}

// ReturnsRaw registers raw return bytes for method on to
func (c *Caller) ReturnsRaw(to common.Address, parsed abi.ABI, method string, data []byte) *Caller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[key{to: to, selector: selectorOf(parsed, method)}] = response{data: data}
	return c
}

// Fails makes method on to return err
func (c *Caller) Fails(to common.Address, parsed abi.ABI, method string, err error) *Caller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[key{to: to, selector: selectorOf(parsed, method)}] = response{err: err}
	return c
}

// SetBalance sets the native balance of account
func (c *Caller) SetBalance(account common.Address, balance *big.Int) *Caller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = balance
	return c
}

// Call implements chain.Caller
func (c *Caller) Call(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("%w: malformed call", ErrUnexpectedCall)
	}

	var k key
	k.to = *msg.To
	copy(k.selector[:], msg.Data[:4])
	c.Log = append(c.Log, fmt.Sprintf("%s:%x", k.to.Hex(), k.selector))

	resp, ok := c.calls[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s selector %x", ErrUnexpectedCall, k.to.Hex(), k.selector)
	}
	return resp.data, resp.err
}

// BalanceAt implements chain.Caller
func (c *Caller) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	balance, ok := c.balances[account]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(balance), nil
}

// SignerAddress implements chain.Caller
func (c *Caller) SignerAddress() common.Address {
	return c.signer
}
