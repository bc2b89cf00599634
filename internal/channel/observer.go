// Package channel dispatches control messages from the host application.
package channel

import (
	"log/slog"
	"sync/atomic"

	"github.com/tkingovr/originguard/api"
)

// NetworkStateNotifier sets the script-visible "network online" property.
type NetworkStateNotifier interface {
	SetOnline(up bool)
}

// Installer receives permission declarations.
type Installer interface {
	Install(baseURL, permissionsJSON string) int
}

// OnlineState is the process-wide online flag. It starts online.
type OnlineState struct {
	online atomic.Bool
	writes atomic.Int64
}

// NewOnlineState returns a flag reporting online.
func NewOnlineState() *OnlineState {
	s := &OnlineState{}
	s.online.Store(true)
	return s
}

// SetOnline stores up as the current value.
func (s *OnlineState) SetOnline(up bool) {
	s.online.Store(up)
	s.writes.Add(1)
}

// Online reports the current value.
func (s *OnlineState) Online() bool { return s.online.Load() }

// Writes returns how many times the flag has been set.
func (s *OnlineState) Writes() int64 { return s.writes.Load() }

type handlerFunc func(msg *api.ControlMessage)

// Observer handles the two engine control messages. Online-state updates
// that arrive before the script engine is initialized are dropped.
type Observer struct {
	notifier    NetworkStateNotifier
	installer   Installer
	logger      *slog.Logger
	initialized atomic.Bool
	handlers    map[api.MessageKind]handlerFunc
}

// NewObserver creates an observer.
func NewObserver(notifier NetworkStateNotifier, installer Installer, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Observer{
		notifier:  notifier,
		installer: installer,
		logger:    logger,
	}
	o.handlers = map[api.MessageKind]handlerFunc{
		api.KindSetOnlineState: o.onSetOnlineState,
		api.KindSetPermissions: o.onSetPermissions,
	}
	return o
}

// MarkInitialized records that the script engine is ready.
func (o *Observer) MarkInitialized() { o.initialized.Store(true) }

// Initialized reports whether MarkInitialized has been called.
func (o *Observer) Initialized() bool { return o.initialized.Load() }

// OnControlMessageReceived dispatches msg by kind. It reports whether the
// kind was recognized, regardless of what the handler did with it.
func (o *Observer) OnControlMessageReceived(msg *api.ControlMessage) bool {
	if msg == nil {
		return false
	}
	h, ok := o.handlers[msg.Kind]
	if !ok {
		return false
	}
	h(msg)
	return true
}

func (o *Observer) onSetOnlineState(msg *api.ControlMessage) {
	if msg.SetOnlineState == nil {
		return
	}
	if !o.initialized.Load() {
		o.logger.Debug("dropping online state before script engine init", "up", msg.SetOnlineState.Up)
		return
	}
	o.notifier.SetOnline(msg.SetOnlineState.Up)
}

func (o *Observer) onSetPermissions(msg *api.ControlMessage) {
	p := msg.SetPermissions
	if p == nil || p.BaseURL == "" || p.Permissions == "" {
		return
	}
	o.installer.Install(p.BaseURL, p.Permissions)
}
