package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/tkingovr/originguard/api"
)

func TestParse_ValidRequest(t *testing.T) {
	data := []byte(`{"jsonrpc":"2.0","id":1,"method":"setOnlineState","params":{"up":false}}`)
	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Method != "setOnlineState" {
		t.Errorf("expected method setOnlineState, got %q", msg.Method)
	}
	if !msg.IsRequest() {
		t.Error("expected IsRequest() to be true")
	}
	if msg.IsNotification() {
		t.Error("expected IsNotification() to be false")
	}
}

func TestParse_Notification(t *testing.T) {
	data := []byte(`{"jsonrpc":"2.0","method":"setPermissions","params":{"base_url":"file:///a/","permissions":"[]"}}`)
	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.IsNotification() {
		t.Error("expected IsNotification() to be true")
	}
	if msg.IsRequest() {
		t.Error("expected IsRequest() to be false")
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParse_WrongVersion(t *testing.T) {
	if _, err := Parse([]byte(`{"jsonrpc":"1.0","id":1,"method":"test"}`)); err == nil {
		t.Fatal("expected error for wrong version")
	}
}

func TestToControlMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		kind    api.MessageKind
		online  *bool
		base    string
		wantErr bool
	}{
		{name: "online", data: `{"jsonrpc":"2.0","id":1,"method":"setOnlineState","params":{"up":true}}`, kind: api.KindSetOnlineState, online: boolPtr(true)},
		{name: "permissions", data: `{"jsonrpc":"2.0","id":2,"method":"setPermissions","params":{"base_url":"file:///android_asset/","permissions":"[\"*://a.test/*\"]"}}`, kind: api.KindSetPermissions, base: "file:///android_asset/"},
		{name: "no params", data: `{"jsonrpc":"2.0","id":3,"method":"setOnlineState"}`, kind: api.KindSetOnlineState},
		{name: "unknown", data: `{"jsonrpc":"2.0","id":4,"method":"navigate","params":{"url":"x"}}`, kind: "navigate"},
		{name: "bad params", data: `{"jsonrpc":"2.0","id":5,"method":"setOnlineState","params":{"up":"yes"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			cm, err := ToControlMessage(msg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cm.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, cm.Kind)
			}
			if tt.online != nil && (cm.SetOnlineState == nil || cm.SetOnlineState.Up != *tt.online) {
				t.Errorf("expected up=%v, got %+v", *tt.online, cm.SetOnlineState)
			}
			if tt.base != "" && (cm.SetPermissions == nil || cm.SetPermissions.BaseURL != tt.base) {
				t.Errorf("expected base %q, got %+v", tt.base, cm.SetPermissions)
			}
			if tt.online == nil && tt.base == "" && (cm.SetOnlineState != nil || cm.SetPermissions != nil) {
				t.Errorf("expected no payload, got %+v", cm)
			}
		})
	}
}

func TestNewControlRequest(t *testing.T) {
	cm := &api.ControlMessage{
		Kind:           api.KindSetPermissions,
		SetPermissions: &api.SetPermissions{BaseURL: "file:///a/", Permissions: `["http://x.test/*"]`},
	}
	msg, err := NewControlRequest(nil, cm)
	if err != nil {
		t.Fatal(err)
	}
	if !msg.IsNotification() {
		t.Error("expected a notification without id")
	}
	back, err := ToControlMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if back.SetPermissions == nil || *back.SetPermissions != *cm.SetPermissions {
		t.Errorf("expected %+v, got %+v", cm.SetPermissions, back.SetPermissions)
	}
}

func TestNewHandledResponse(t *testing.T) {
	data, err := Marshal(NewHandledResponse(json.RawMessage(`7`), true))
	if err != nil {
		t.Fatal(err)
	}

	var msg struct {
		ID     int               `json:"id"`
		Result api.HandledResult `json:"result"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if msg.ID != 7 || !msg.Result.Handled {
		t.Errorf("unexpected response: %s", data)
	}
}

func TestNewParseErrorResponse(t *testing.T) {
	data, err := Marshal(NewParseErrorResponse("bad line"))
	if err != nil {
		t.Fatal(err)
	}

	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	errObj, ok := msg["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error field in response")
	}
	if int(errObj["code"].(float64)) != ErrorCodeParseError {
		t.Errorf("expected error code %d, got %v", ErrorCodeParseError, errObj["code"])
	}
}

func boolPtr(b bool) *bool { return &b }
