package api

import "encoding/json"

// JSONRPCMessage represents a JSON-RPC 2.0 message (request, response, or notification).
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IsRequest returns true if this message is a request (has method and ID).
func (m *JSONRPCMessage) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification returns true if this message is a notification (has method but no ID).
func (m *JSONRPCMessage) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// IsResponse returns true if this message is a response (has ID but no method).
func (m *JSONRPCMessage) IsResponse() bool {
	return m.Method == "" && m.ID != nil
}

// MessageKind tags a control message from the host application.
type MessageKind string

const (
	KindSetOnlineState MessageKind = "setOnlineState"
	KindSetPermissions MessageKind = "setPermissions"
)

// SetOnlineState toggles the script-visible network online property.
type SetOnlineState struct {
	Up bool `json:"up"`
}

// SetPermissions delivers a permission declaration for a base URL.
// Permissions is a JSON-encoded array of URL match patterns.
type SetPermissions struct {
	BaseURL     string `json:"base_url"`
	Permissions string `json:"permissions"`
}

// ControlMessage is a decoded host-to-engine message. Exactly one payload
// field is set for recognized kinds; unrecognized kinds carry none.
type ControlMessage struct {
	Kind           MessageKind
	SetOnlineState *SetOnlineState
	SetPermissions *SetPermissions
}

// HandledResult is the reply body for a control request.
type HandledResult struct {
	Handled bool `json:"handled"`
}
