// Package merrors defines the typed error taxonomy shared across
// magictunnel's subsystems (§7 of the specification). A *Error carries
// enough structure to be rendered either as a log line or as a JSON-RPC
// error object without losing the wrapped cause.
package merrors

import "fmt"

// Type classifies an error into the taxonomy of §7.
type Type string

// The error taxonomy. Application families map to JSON-RPC codes in
// [-32000, -31986]; ErrParse, ErrProtocol and ErrInternal map to the
// reserved JSON-RPC codes (see JSONRPCCode).
const (
	ErrParse      Type = "parse"
	ErrValidation Type = "validation"
	ErrConfig     Type = "config"
	ErrRouting    Type = "routing"
	ErrAgent      Type = "agent"
	ErrRegistry   Type = "registry"
	ErrBackend    Type = "backend"
	ErrDiscovery  Type = "discovery"
	ErrForwarder  Type = "forwarder"
	ErrProtocol   Type = "protocol"
	ErrAuth       Type = "auth"
	ErrInternal   Type = "internal"
)

// Error is the structured error type used across magictunnel.
type Error struct {
	Type    Type
	Message string
	Cause   error
	Data    map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an *Error with no cause.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap constructs an *Error around an existing cause.
func Wrap(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// WithData attaches structured data and returns the receiver for chaining.
func (e *Error) WithData(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// JSONRPCCode maps a Type to the application error-code band reserved
// in §6.1 ([-32000, -31986]), one code per application family; parse,
// protocol and internal errors use the reserved JSON-RPC codes.
func (t Type) JSONRPCCode() int {
	switch t {
	case ErrBackend:
		return -32000
	case ErrForwarder:
		return -31999
	case ErrAuth:
		return -31998
	case ErrDiscovery:
		return -31997
	case ErrRouting:
		return -31996
	case ErrAgent:
		return -31995
	case ErrRegistry:
		return -31994
	case ErrValidation:
		return -31993
	case ErrConfig:
		return -31992
	case ErrParse:
		return -32700 // reserved JSON-RPC parse error, reused for capability/YAML parse failures
	case ErrProtocol:
		return -32600
	default:
		return -32603 // internal
	}
}

// RPCError is the JSON-RPC 2.0 error object shape (§6.1).
type RPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ToRPCError converts a typed Error into a wire-ready JSON-RPC error object.
func ToRPCError(err error) RPCError {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		e = Wrap(ErrInternal, err.Error(), nil)
	}
	return RPCError{
		Code:    e.Type.JSONRPCCode(),
		Message: e.Error(),
		Data:    e.Data,
	}
}
