package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/tkingovr/originguard/api"
)

// Parse decodes a raw JSON byte slice into a JSONRPCMessage.
func Parse(data []byte) (*api.JSONRPCMessage, error) {
	var msg api.JSONRPCMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC message: %w", err)
	}
	if msg.JSONRPC != "2.0" {
		return nil, fmt.Errorf("unsupported JSON-RPC version: %q", msg.JSONRPC)
	}
	return &msg, nil
}

// ToControlMessage maps a JSON-RPC request or notification to a control
// message. Unknown methods are returned with their method name as the kind
// and no payload so dispatch can report them unhandled. A recognized method
// without params yields a message with no payload. Only params that fail to
// decode are an error.
func ToControlMessage(msg *api.JSONRPCMessage) (*api.ControlMessage, error) {
	cm := &api.ControlMessage{Kind: api.MessageKind(msg.Method)}
	if len(msg.Params) == 0 {
		return cm, nil
	}

	switch cm.Kind {
	case api.KindSetOnlineState:
		var p api.SetOnlineState
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s params: %w", msg.Method, err)
		}
		cm.SetOnlineState = &p
	case api.KindSetPermissions:
		var p api.SetPermissions
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s params: %w", msg.Method, err)
		}
		cm.SetPermissions = &p
	}
	return cm, nil
}

// NewControlRequest wraps a control message for the wire. A nil id makes it
// a notification.
func NewControlRequest(id json.RawMessage, cm *api.ControlMessage) (*api.JSONRPCMessage, error) {
	var payload any
	switch {
	case cm.SetOnlineState != nil:
		payload = cm.SetOnlineState
	case cm.SetPermissions != nil:
		payload = cm.SetPermissions
	}
	msg := &api.JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
		Method:  string(cm.Kind),
	}
	if payload != nil {
		params, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s params: %w", cm.Kind, err)
		}
		msg.Params = params
	}
	return msg, nil
}
