package channel

import "github.com/tkingovr/originguard/api"

// Handler is one participant in a shared dispatch chain.
type Handler interface {
	OnControlMessageReceived(msg *api.ControlMessage) bool
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg *api.ControlMessage) bool

func (f HandlerFunc) OnControlMessageReceived(msg *api.ControlMessage) bool { return f(msg) }

// Router offers each message to its handlers in order until one handles it.
type Router struct {
	handlers []Handler
}

// NewRouter creates a router.
func NewRouter(handlers ...Handler) *Router {
	return &Router{handlers: handlers}
}

// Add appends a handler.
func (r *Router) Add(h Handler) {
	r.handlers = append(r.handlers, h)
}

// OnControlMessageReceived reports whether any handler handled msg.
func (r *Router) OnControlMessageReceived(msg *api.ControlMessage) bool {
	for _, h := range r.handlers {
		if h.OnControlMessageReceived(msg) {
			return true
		}
	}
	return false
}
