package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattt/ethmcp/internal"
	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/config"
	"github.com/mattt/ethmcp/internal/metrics"
	"github.com/mattt/ethmcp/internal/tools"
	"github.com/mattt/ethmcp/mcp"
)

var rootCmd = &cobra.Command{
	Use:   "ethmcp",
	Short: "An MCP server exposing read-only Ethereum tools",
	Long: `ethmcp is a CLI tool that provides an MCP stdio transport for Ethereum.
It processes JSON-RPC requests from stdin and writes JSON-RPC responses to stdout.

Tools:
- get_balance      native or ERC-20 balance of an address
- get_token_price  USD and ETH price from a Chainlink feed and Uniswap V3 pools
- swap_tokens      Uniswap V3 quote and unsigned swap transaction

Nothing is signed or broadcast. The RPC endpoint and signer are read from
the config file, then ETHEREUM_RPC_URL, PRIVATE_KEY and SIGNER_ADDRESS,
then flags.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger, err := newLogger(os.Stderr, verbose, logLevel)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}

		network, err := cfg.Network()
		if err != nil {
			return fmt.Errorf("error in config: %w", err)
		}
		signer, err := cfg.Signer()
		if err != nil {
			return fmt.Errorf("error in config: %w", err)
		}

		registry, err := tools.NewRegistry(tools.Defaults(network)...)
		if err != nil {
			return fmt.Errorf("error registering tools: %w", err)
		}
		registry, err = registry.Without(cfg.DisabledTools...)
		if err != nil {
			return fmt.Errorf("error in disabled_tools: %w", err)
		}

		client, err := chain.Dial(ctx, cfg.RPCURL, newHTTPClient(cfg.HTTP, logger), signer, chain.WithLogger(logger))
		if err != nil {
			return err
		}
		defer client.Close()

		server, err := mcp.NewServer(
			mcp.WithRegistry(registry),
			mcp.WithCaller(client),
			mcp.WithLogger(logger),
			mcp.WithServerInfo("ethmcp", version),
		)
		if err != nil {
			return fmt.Errorf("error creating server: %w", err)
		}

		logger.Info("serving", "signer", signer.Hex(), "tools", registry.Len())

		g, ctx := errgroup.WithContext(ctx)
		ctx, stop := context.WithCancel(ctx)

		if metricsAddr != "" {
			ops := metrics.NewServer(metricsAddr, logger)
			g.Go(func() error {
				return ops.Start(ctx)
			})
		}

		g.Go(func() error {
			// End of input stops the ops server too.
			defer stop()
			transport := mcp.NewStdioTransport(os.Stdin, os.Stdout, logger)
			return transport.Run(ctx, server)
		})

		return g.Wait()
	},
}

var (
	configPath  string
	rpcURL      string
	verbose     bool
	logLevel    string
	retries     int
	timeout     time.Duration
	headers     []string
	metricsAddr string

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&rpcURL, "rpc-url", "", "Ethereum JSON-RPC endpoint (overrides config and ETHEREUM_RPC_URL)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level for stderr output (debug, info, warn, error)")
	rootCmd.Flags().IntVar(&retries, "retries", 0, "Maximum number of retries for failed RPC requests")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "RPC request timeout")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra RPC request header as 'Key: Value' (repeatable)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the health and metrics server (disabled when empty)")

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

// newLogger writes text logs to w. Without verbose or an explicit level, logs are discarded.
func newLogger(w io.Writer, verbose bool, level string) (*slog.Logger, error) {
	if verbose {
		level = "debug"
	}
	if level == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// loadConfig layers the config file, the environment and flags, then validates the result
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	flags := cmd.Flags()
	if flags.Changed("rpc-url") {
		cfg.RPCURL = rpcURL
	}
	if flags.Changed("retries") {
		cfg.HTTP.Retries = retries
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if len(headers) > 0 {
		parsed, err := parseHeaders(headers)
		if err != nil {
			return nil, err
		}
		if cfg.HTTP.Headers == nil {
			cfg.HTTP.Headers = make(map[string]string, len(parsed))
		}
		for k, v := range parsed {
			cfg.HTTP.Headers[k] = v
		}
	}

	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseHeaders(values []string) (map[string]string, error) {
	parsed := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := strings.Cut(value, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Key: Value'", value)
		}
		parsed[key] = strings.TrimSpace(val)
	}
	return parsed, nil
}

// newHTTPClient builds the RPC HTTP client. Retries are off unless configured.
func newHTTPClient(cfg config.HTTP, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = logger

	if len(cfg.Headers) > 0 {
		retryClient.HTTPClient.Transport = internal.NewHeaderTransport(retryClient.HTTPClient.Transport, cfg.Headers)
	}

	return retryClient.StandardClient()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
