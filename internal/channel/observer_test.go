package channel

import (
	"io"
	"log/slog"
	"testing"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/registry"
	"github.com/tkingovr/originguard/internal/whitelist"
)

type recordingInstaller struct {
	calls [][2]string
}

func (r *recordingInstaller) Install(baseURL, permissions string) int {
	r.calls = append(r.calls, [2]string{baseURL, permissions})
	return 0
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func onlineMsg(up bool) *api.ControlMessage {
	return &api.ControlMessage{Kind: api.KindSetOnlineState, SetOnlineState: &api.SetOnlineState{Up: up}}
}

func permsMsg(base, perms string) *api.ControlMessage {
	return &api.ControlMessage{Kind: api.KindSetPermissions, SetPermissions: &api.SetPermissions{BaseURL: base, Permissions: perms}}
}

func TestObserver_OnlineStateDroppedBeforeInit(t *testing.T) {
	state := NewOnlineState()
	o := NewObserver(state, &recordingInstaller{}, newTestLogger())

	if !o.OnControlMessageReceived(onlineMsg(false)) {
		t.Error("expected handled=true even when dropped")
	}
	if !state.Online() || state.Writes() != 0 {
		t.Errorf("expected no effect before init, online=%v writes=%d", state.Online(), state.Writes())
	}

	// Nothing is replayed once the engine is ready.
	o.MarkInitialized()
	if !state.Online() || state.Writes() != 0 {
		t.Error("expected dropped update not to be replayed")
	}
}

func TestObserver_OnlineStateLastValueWins(t *testing.T) {
	state := NewOnlineState()
	o := NewObserver(state, &recordingInstaller{}, newTestLogger())
	o.MarkInitialized()

	for _, up := range []bool{false, true, false} {
		o.OnControlMessageReceived(onlineMsg(up))
	}
	if state.Online() {
		t.Error("expected last delivered value (false)")
	}
	if state.Writes() != 3 {
		t.Errorf("expected 3 writes, got %d", state.Writes())
	}
}

func TestObserver_SetPermissions(t *testing.T) {
	inst := &recordingInstaller{}
	o := NewObserver(NewOnlineState(), inst, newTestLogger())

	tests := []struct {
		name  string
		msg   *api.ControlMessage
		calls int
	}{
		{"both set", permsMsg("file:///android_asset/", `["*://a.test/*"]`), 1},
		{"empty base", permsMsg("", `["*://a.test/*"]`), 0},
		{"empty permissions", permsMsg("file:///android_asset/", ""), 0},
		{"no payload", &api.ControlMessage{Kind: api.KindSetPermissions}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst.calls = nil
			if !o.OnControlMessageReceived(tt.msg) {
				t.Error("expected handled=true")
			}
			if len(inst.calls) != tt.calls {
				t.Errorf("expected %d install calls, got %d", tt.calls, len(inst.calls))
			}
		})
	}
}

func TestObserver_UnknownKind(t *testing.T) {
	o := NewObserver(NewOnlineState(), &recordingInstaller{}, newTestLogger())
	if o.OnControlMessageReceived(&api.ControlMessage{Kind: "navigate"}) {
		t.Error("expected handled=false for unknown kind")
	}
	if o.OnControlMessageReceived(nil) {
		t.Error("expected handled=false for nil message")
	}
	if !o.OnControlMessageReceived(&api.ControlMessage{Kind: api.KindSetOnlineState}) {
		t.Error("expected handled=true for recognized kind without payload")
	}
}

func TestObserver_InstallsIntoRegistry(t *testing.T) {
	reg := registry.NewMemory()
	o := NewObserver(NewOnlineState(), whitelist.NewCompiler(reg, newTestLogger()), newTestLogger())

	o.OnControlMessageReceived(permsMsg("file:///android_asset/", `["*://example.com/*"]`))
	if reg.Len() != 4 {
		t.Errorf("expected 4 whitelist entries, got %d", reg.Len())
	}
}

func TestRouter(t *testing.T) {
	var seen []string
	other := HandlerFunc(func(msg *api.ControlMessage) bool {
		seen = append(seen, string(msg.Kind))
		return msg.Kind == "navigate"
	})
	o := NewObserver(NewOnlineState(), &recordingInstaller{}, newTestLogger())
	r := NewRouter(o, other)

	if !r.OnControlMessageReceived(onlineMsg(true)) {
		t.Error("expected observer to handle online state")
	}
	if len(seen) != 0 {
		t.Error("expected router to stop at the first handler")
	}
	if !r.OnControlMessageReceived(&api.ControlMessage{Kind: "navigate"}) {
		t.Error("expected second handler to handle navigate")
	}
	if r.OnControlMessageReceived(&api.ControlMessage{Kind: "unknown"}) {
		t.Error("expected unhandled message to report false")
	}
}
