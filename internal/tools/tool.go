// Package tools implements the chain query tools exposed over tools/call.
package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/mattt/ethmcp/internal/chain"
)

// Tool is a named operation callable through tools/call.
//
// Tools hold no mutable state and may be called concurrently.
// The input schema is advertised by tools/list only; each tool validates its own arguments.
type Tool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Call(ctx context.Context, client chain.Caller, args json.RawMessage) (any, error)
}

// decodeArgs unmarshals raw tool arguments into v; absent or null arguments decode as {}.
func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return argumentErrorf("invalid arguments: %v", err)
	}
	return nil
}

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func stringProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func addressProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
		Pattern:     "^(0x)?[0-9a-fA-F]{40}$",
	}
}
