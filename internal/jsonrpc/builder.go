package jsonrpc

import (
	"encoding/json"

	"github.com/tkingovr/originguard/api"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeInvalidParams  = -32602
)

// NewHandledResponse reports whether a control request was handled.
func NewHandledResponse(id json.RawMessage, handled bool) *api.JSONRPCMessage {
	result, _ := json.Marshal(api.HandledResult{Handled: handled})
	return &api.JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// NewParseErrorResponse creates the reply for a line that is not JSON-RPC.
func NewParseErrorResponse(message string) *api.JSONRPCMessage {
	return &api.JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      json.RawMessage("null"),
		Error: &api.JSONRPCError{
			Code:    ErrorCodeParseError,
			Message: message,
		},
	}
}

// NewInvalidRequestResponse creates the reply for a message that is neither
// a request, a notification nor a response.
func NewInvalidRequestResponse(id json.RawMessage, message string) *api.JSONRPCMessage {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &api.JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error: &api.JSONRPCError{
			Code:    ErrorCodeInvalidRequest,
			Message: message,
		},
	}
}

// NewInvalidParamsResponse creates the reply for undecodable params.
func NewInvalidParamsResponse(id json.RawMessage, message string) *api.JSONRPCMessage {
	return &api.JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error: &api.JSONRPCError{
			Code:    ErrorCodeInvalidParams,
			Message: message,
		},
	}
}

// Marshal encodes a JSONRPCMessage to JSON bytes.
func Marshal(msg *api.JSONRPCMessage) ([]byte, error) {
	return json.Marshal(msg)
}
