package jsonrpc

import (
	"encoding/json"
	"errors"
)

// Version is the JSON-RPC protocol version
const Version = "2.0"

// Request represents a JSON-RPC request object
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// NewRequest creates a new Request object
func NewRequest(method string, params json.RawMessage, id interface{}) Request {
	reqID, _ := NewID(id)

	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
		ID:      reqID,
	}
}

// ParseRequest decodes a single request line.
// The jsonrpc and method members are mandatory; a line without them is not a request.
func ParseRequest(data []byte) (Request, error) {
	var request Request
	if err := json.Unmarshal(data, &request); err != nil {
		return Request{}, err
	}
	if request.Version == "" {
		return Request{}, errors.New("missing jsonrpc member")
	}
	if request.Method == "" {
		return Request{}, errors.New("missing method member")
	}
	return request, nil
}

// HasParams reports whether params were supplied and are not JSON null
func (r Request) HasParams() bool {
	return len(r.Params) > 0 && string(r.Params) != "null"
}
