package jsonrpc

// Result is any JSON-marshalable value
type Result interface{}

// Response represents a JSON-RPC response object.
// Both result and error are always serialized; exactly one of them is non-null.
type Response struct {
	Version string `json:"jsonrpc"`
	Result  Result `json:"result"`
	Error   *Error `json:"error"`
	ID      ID     `json:"id"`
}

// NewResponse creates a new Response object
func NewResponse(id ID, result Result, err *Error) *Response {
	if err != nil {
		result = nil
	}

	return &Response{
		Version: Version,
		ID:      id,
		Result:  result,
		Error:   err,
	}
}

// NewErrorResponse is shorthand for a response carrying only an error
func NewErrorResponse(id ID, err *Error) *Response {
	return NewResponse(id, nil, err)
}
