package tools

import (
	"errors"
	"fmt"

	"github.com/mattt/ethmcp/internal/chain"
)

// Kind classifies a tool failure
type Kind int

const (
	// ArgumentError is a malformed or missing argument
	ArgumentError Kind = iota + 1
	// ChainCallError is a failed remote call
	ChainCallError
	// DecodeError is a remote return value that could not be decoded
	DecodeError
	// NotFoundError is a lookup that came back empty, e.g. no liquidity pool
	NotFoundError
)

func (k Kind) String() string {
	switch k {
	case ArgumentError:
		return "argument_error"
	case ChainCallError:
		return "chain_call_error"
	case DecodeError:
		return "decode_error"
	case NotFoundError:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the failure returned by every tool
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var _ error = &Error{}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of a tool error anywhere in err's chain
func KindOf(err error) (Kind, bool) {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.Kind, true
	}
	return 0, false
}

func argumentErrorf(format string, args ...any) *Error {
	return &Error{Kind: ArgumentError, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFoundError, Message: fmt.Sprintf(format, args...)}
}

// chainError wraps a failure from the chain package, separating decode failures from call failures.
func chainError(err error) *Error {
	kind := ChainCallError
	if errors.Is(err, chain.ErrDecode) {
		kind = DecodeError
	}
	return &Error{Kind: kind, Err: err}
}
