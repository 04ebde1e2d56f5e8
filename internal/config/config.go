// Package config loads the server configuration from YAML, the environment, and flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/mattt/ethmcp/internal"
	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/tools"
)

// Environment variables read by ApplyEnv.
const (
	EnvRPCURL        = "ETHEREUM_RPC_URL"
	EnvPrivateKey    = "PRIVATE_KEY"
	EnvSignerAddress = "SIGNER_ADDRESS"
)

// Config represents the configuration for the server
type Config struct {
	// RPCURL is the Ethereum JSON-RPC endpoint. May be an op:// reference.
	RPCURL string `yaml:"rpc_url"`

	// PrivateKey is only used to derive the signer address; nothing is signed.
	// May be an op:// reference.
	PrivateKey string `yaml:"private_key,omitempty"`

	// SignerAddress is used instead of PrivateKey when set.
	SignerAddress string `yaml:"signer_address,omitempty"`

	NativeSymbol string    `yaml:"native_symbol"`
	Contracts    Contracts `yaml:"contracts"`

	// Tokens adds symbol to address entries to the built-in table.
	Tokens map[string]string `yaml:"tokens,omitempty"`

	// DisabledTools lists tool names to leave out of the registry.
	DisabledTools []string `yaml:"disabled_tools,omitempty"`

	HTTP HTTP `yaml:"http"`
}

// Contracts holds the addresses the tools read from
type Contracts struct {
	PriceFeed     string `yaml:"price_feed"`
	Factory       string `yaml:"factory"`
	Quoter        string `yaml:"quoter"`
	Router        string `yaml:"router"`
	WrappedNative string `yaml:"wrapped_native"`
	PoolFee       uint32 `yaml:"pool_fee"`
}

// HTTP configures the client used for the RPC endpoint
type HTTP struct {
	Timeout time.Duration     `yaml:"timeout"`
	Retries int               `yaml:"retries"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultConfig returns a configuration for Ethereum mainnet with no endpoint or signer
func DefaultConfig() *Config {
	mainnet := tools.Mainnet()
	return &Config{
		NativeSymbol: mainnet.NativeSymbol,
		Contracts: Contracts{
			PriceFeed:     mainnet.PriceFeed.Hex(),
			Factory:       mainnet.Factory.Hex(),
			Quoter:        mainnet.Quoter.Hex(),
			Router:        mainnet.Router.Hex(),
			WrappedNative: mainnet.WrappedNative.Hex(),
			PoolFee:       mainnet.PoolFee,
		},
		HTTP: HTTP{
			Timeout: 60 * time.Second,
		},
	}
}

// LoadFile loads configuration from a file.
// An empty path or a missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads configuration from an io.Reader, layered over the defaults
func Load(r io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config YAML: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from environment variables.
// lookup is normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRPCURL); ok && v != "" {
		c.RPCURL = v
	}
	if v, ok := lookup(EnvPrivateKey); ok && v != "" {
		c.PrivateKey = v
	}
	if v, ok := lookup(EnvSignerAddress); ok && v != "" {
		c.SignerAddress = v
	}
}

// ResolveSecrets replaces op:// references in the RPC URL and private key with their values
func (c *Config) ResolveSecrets(ctx context.Context) error {
	for _, field := range []*string{&c.RPCURL, &c.PrivateKey} {
		value, _, err := internal.ResolveSecretReference(ctx, *field)
		if err != nil {
			return err
		}
		*field = value
	}
	return nil
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var errs []error

	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("rpc_url is required (or set %s)", EnvRPCURL))
	}
	if c.PrivateKey == "" && c.SignerAddress == "" {
		errs = append(errs, fmt.Errorf("private_key or signer_address is required (or set %s)", EnvPrivateKey))
	}
	if c.SignerAddress != "" && !common.IsHexAddress(c.SignerAddress) {
		errs = append(errs, fmt.Errorf("signer_address: invalid address %q", c.SignerAddress))
	}

	errs = append(errs, c.addressErrors()...)

	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	if c.HTTP.Retries < 0 {
		errs = append(errs, errors.New("http.retries must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) addressErrors() []error {
	var errs []error

	contracts := map[string]string{
		"contracts.price_feed":     c.Contracts.PriceFeed,
		"contracts.factory":        c.Contracts.Factory,
		"contracts.quoter":         c.Contracts.Quoter,
		"contracts.router":         c.Contracts.Router,
		"contracts.wrapped_native": c.Contracts.WrappedNative,
	}
	for _, name := range sortedKeys(contracts) {
		if !common.IsHexAddress(contracts[name]) {
			errs = append(errs, fmt.Errorf("%s: invalid address %q", name, contracts[name]))
		}
	}
	for _, symbol := range sortedKeys(c.Tokens) {
		if !common.IsHexAddress(c.Tokens[symbol]) {
			errs = append(errs, fmt.Errorf("tokens.%s: invalid address %q", symbol, c.Tokens[symbol]))
		}
	}
	if c.Contracts.PoolFee > 0xFFFFFF {
		errs = append(errs, fmt.Errorf("contracts.pool_fee: %d exceeds uint24", c.Contracts.PoolFee))
	}

	return errs
}

// Signer returns the address read-only calls are made from.
// An explicit signer_address takes precedence over the private key.
func (c *Config) Signer() (common.Address, error) {
	if c.SignerAddress != "" {
		return chain.ParseAddress(c.SignerAddress)
	}
	if c.PrivateKey == "" {
		return common.Address{}, errors.New("no signer configured")
	}
	return chain.SignerFromKey(c.PrivateKey)
}

// Network converts the configuration into the addresses used by the tools
func (c *Config) Network() (tools.Network, error) {
	if err := errors.Join(c.addressErrors()...); err != nil {
		return tools.Network{}, err
	}

	network := tools.Network{
		NativeSymbol:  strings.ToUpper(c.NativeSymbol),
		PriceFeed:     common.HexToAddress(c.Contracts.PriceFeed),
		Factory:       common.HexToAddress(c.Contracts.Factory),
		Quoter:        common.HexToAddress(c.Contracts.Quoter),
		Router:        common.HexToAddress(c.Contracts.Router),
		WrappedNative: common.HexToAddress(c.Contracts.WrappedNative),
		PoolFee:       c.Contracts.PoolFee,
		Tokens:        tools.Mainnet().Tokens,
	}
	// The wrapped native entry follows the configured contract.
	if network.NativeSymbol != "" {
		network.Tokens["W"+network.NativeSymbol] = network.WrappedNative
	}
	for symbol, addr := range c.Tokens {
		network.Tokens[strings.ToUpper(symbol)] = common.HexToAddress(addr)
	}

	return network, nil
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
