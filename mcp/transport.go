package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mattt/ethmcp/internal/metrics"
	"github.com/mattt/ethmcp/jsonrpc"
)

// Transport reads newline-delimited requests from in and writes one
// response line per request to out.
type Transport struct {
	scanner *bufio.Scanner
	writer  *json.Encoder
	bufOut  *bufio.Writer
	logger  *slog.Logger
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	scanner := bufio.NewScanner(in)
	// Set a reasonable max size for each line
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bufOut := bufio.NewWriter(out)
	return &Transport{
		scanner: scanner,
		writer:  json.NewEncoder(bufOut),
		bufOut:  bufOut,
		logger:  logger,
	}
}

// Run processes requests until the input is exhausted or ctx is cancelled.
// Requests are handled strictly one at a time, in input order.
func (t *Transport) Run(ctx context.Context, handler jsonrpc.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if !t.scanner.Scan() {
				if err := t.scanner.Err(); err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}

			line := bytes.TrimSpace(t.scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			request, err := jsonrpc.ParseRequest(line)
			if err != nil {
				// Unparsable lines get no response.
				metrics.DroppedLinesTotal.Inc()
				t.logger.Error("dropping unparsable line", "error", err)
				continue
			}

			response := handler.Handle(ctx, request)
			if response == nil {
				continue
			}
			if err := t.write(response); err != nil {
				return err
			}
		}
	}
}

func (t *Transport) write(response *jsonrpc.Response) error {
	if err := t.writer.Encode(response); err != nil {
		t.logger.Error("error encoding response", "error", err)
		fallback := jsonrpc.NewErrorResponse(response.ID, jsonrpc.NewError(jsonrpc.ErrInternal, err.Error()))
		if err := t.writer.Encode(fallback); err != nil {
			return fmt.Errorf("error encoding response: %w", err)
		}
	}
	if err := t.bufOut.Flush(); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}
