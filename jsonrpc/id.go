package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID represents a JSON-RPC request ID.
// The raw JSON is kept so responses echo it back byte for byte;
// a missing or null ID is serialized as null.
type ID struct {
	raw json.RawMessage
}

// NewID creates an ID from any JSON-marshalable value
func NewID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case nil:
		return ID{}, nil
	case json.RawMessage:
		return parseID(v), nil
	}

	data, err := json.Marshal(id)
	if err != nil {
		return ID{}, fmt.Errorf("id is not JSON-marshalable: %w", err)
	}
	return parseID(data), nil
}

func parseID(data []byte) ID {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ID{}
	}
	return ID{raw: append(json.RawMessage(nil), trimmed...)}
}

// Raw returns the ID as it appeared on the wire, or nil
func (id ID) Raw() json.RawMessage {
	return id.raw
}

// Value decodes the ID into a plain Go value
func (id ID) Value() interface{} {
	if id.IsNil() {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(id.raw, &v); err != nil {
		return nil
	}
	return v
}

func (id ID) IsNil() bool {
	return len(id.raw) == 0
}

// Equal compares two IDs by their wire representation
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id.raw, other.raw)
}

var _ fmt.Stringer = ID{}

func (id ID) String() string {
	if id.IsNil() {
		return "null"
	}
	return string(id.raw)
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid id %q", data)
	}
	*id = parseID(data)
	return nil
}
