package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the Model Context Protocol version
const Version = "2024-11-05"

// Methods handled by Server.
const (
	MethodInitialize = "initialize"
	MethodPing       = "ping"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"

	notificationPrefix = "notifications/"
)

// Content represents a single content block of a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextContent creates a text content block
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// Initialize
type (
	// ToolsCapability advertises tool support
	ToolsCapability struct {
		ListChanged bool `json:"listChanged"`
	}

	// ServerCapabilities represents the server's supported capabilities
	ServerCapabilities struct {
		Tools *ToolsCapability `json:"tools,omitempty"`
	}

	// ServerInfo represents information about an MCP implementation
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	// InitializeResult represents the server's response to an initialize request
	InitializeResult struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      ServerInfo         `json:"serverInfo"`
		Instructions    string             `json:"instructions,omitempty"`
	}
)

// Tools
type (
	// Tool describes a tool in the tools/list response
	Tool struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
	}

	// ToolsListResult represents the response for the tools/list method
	ToolsListResult struct {
		Tools []Tool `json:"tools"`
	}

	// CallToolParams represents the parameters for the tools/call method
	CallToolParams struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	// CallToolResult carries a tool's output twice: rendered as text content
	// for MCP clients, and verbatim under data for clients reading raw JSON.
	CallToolResult struct {
		Content []Content `json:"content"`
		Data    any       `json:"data"`
	}
)
