package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mattt/ethmcp/internal/chain"
	"github.com/mattt/ethmcp/internal/metrics"
	"github.com/mattt/ethmcp/internal/tools"
	"github.com/mattt/ethmcp/jsonrpc"
)

// Server represents an MCP server that dispatches JSON-RPC requests to tools
type Server struct {
	info     ServerInfo
	registry *tools.Registry
	caller   chain.Caller
	logger   *slog.Logger
}

var _ jsonrpc.Handler = (*Server)(nil)

// ServerOption configures a Server
type ServerOption func(*Server) error

// WithRegistry sets the tools the server exposes
func WithRegistry(registry *tools.Registry) ServerOption {
	return func(s *Server) error {
		s.registry = registry
		return nil
	}
}

// WithCaller sets the chain collaborator passed to every tool call
func WithCaller(caller chain.Caller) ServerOption {
	return func(s *Server) error {
		s.caller = caller
		return nil
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithServerInfo sets the name and version reported by initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) error {
		if name == "" {
			return errors.New("server name must not be empty")
		}
		s.info = ServerInfo{Name: name, Version: version}
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		info:   ServerInfo{Name: "ethmcp", Version: "dev"},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.registry == nil {
		return nil, errors.New("no tool registry provided")
	}
	if s.caller == nil {
		return nil, errors.New("no chain caller provided")
	}

	return s, nil
}

// Handle processes a single JSON-RPC request.
// Notifications return nil and produce no output.
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) *jsonrpc.Response {
	logger := s.logger.With("request_id", uuid.NewString(), "method", request.Method)
	metrics.RequestsTotal.WithLabelValues(methodLabel(request.Method)).Inc()

	if strings.HasPrefix(request.Method, notificationPrefix) && request.ID.IsNil() {
		logger.Debug("notification received")
		return nil
	}

	logger.Debug("handling request", "id", request.ID.String())

	var response *jsonrpc.Response
	switch request.Method {
	case MethodInitialize:
		response = s.handleInitialize(request)
	case MethodPing:
		response = jsonrpc.NewResponse(request.ID, struct{}{}, nil)
	case MethodToolsList:
		response = s.handleToolsList(request)
	case MethodToolsCall:
		response = s.handleToolsCall(ctx, logger, request)
	default:
		response = jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}

	if response.Error != nil {
		logger.Debug("request failed", "code", int(response.Error.Code), "message", response.Error.Message)
	}
	return response
}

func (s *Server) handleInitialize(request jsonrpc.Request) *jsonrpc.Response {
	return jsonrpc.NewResponse(request.ID, InitializeResult{
		ProtocolVersion: Version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: s.info,
	}, nil)
}

func (s *Server) handleToolsList(request jsonrpc.Request) *jsonrpc.Response {
	list := s.registry.List()

	result := ToolsListResult{Tools: make([]Tool, 0, len(list))}
	for _, tool := range list {
		result.Tools = append(result.Tools, Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	return jsonrpc.NewResponse(request.ID, result, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, logger *slog.Logger, request jsonrpc.Request) *jsonrpc.Response {
	if !request.HasParams() {
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.Errorf(jsonrpc.ErrInvalidParams, "Missing params"))
	}

	var params CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err.Error()))
	}
	if params.Name == "" {
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.Errorf(jsonrpc.ErrInvalidParams, "Missing 'name' parameter"))
	}

	if len(params.Arguments) == 0 || string(params.Arguments) == "null" {
		params.Arguments = json.RawMessage("{}")
	}

	tool, ok := s.registry.Get(params.Name)
	if !ok {
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.Errorf(jsonrpc.ErrMethodNotFound, "Tool not found: %s", params.Name))
	}

	logger = logger.With("tool", params.Name)
	logger.Info("calling tool")

	started := time.Now()
	result, err := s.callTool(ctx, tool, params.Arguments)
	metrics.ObserveToolCall(params.Name, started, err)
	if err != nil {
		logger.Error("tool failed", "error", err, "duration", time.Since(started))
		return jsonrpc.NewErrorResponse(request.ID, toolError(err))
	}
	logger.Debug("tool succeeded", "duration", time.Since(started))

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return jsonrpc.NewErrorResponse(request.ID, toolError(err))
	}

	return jsonrpc.NewResponse(request.ID, CallToolResult{
		Content: []Content{NewTextContent(string(text))},
		Data:    result,
	}, nil)
}

// callTool runs a tool, turning a panic into an error so one bad call
// cannot take down the transport loop.
func (s *Server) callTool(ctx context.Context, tool tools.Tool, args json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Call(ctx, s.caller, args)
}

func toolError(err error) *jsonrpc.Error {
	rpcErr := jsonrpc.Errorf(jsonrpc.ErrInternal, "Tool execution failed: %s", err.Error())
	if kind, ok := tools.KindOf(err); ok {
		return rpcErr.WithData(map[string]string{"kind": kind.String()})
	}
	return rpcErr
}

// methodLabel keeps metric label cardinality bounded
func methodLabel(method string) string {
	switch method {
	case MethodInitialize, MethodPing, MethodToolsList, MethodToolsCall:
		return method
	}
	if strings.HasPrefix(method, notificationPrefix) {
		return "notification"
	}
	return "unknown"
}
