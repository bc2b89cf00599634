package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tkingovr/originguard/internal/audit"
	"github.com/tkingovr/originguard/internal/channel"
	"github.com/tkingovr/originguard/internal/cookiepolicy"
	"github.com/tkingovr/originguard/internal/registry"
)

// Options wires the status API to the running engine state.
type Options struct {
	Addr      string
	Registry  *registry.Memory
	Online    *channel.OnlineState
	Observer  *channel.Observer
	Handler   channel.Handler
	Authority cookiepolicy.Authority
	// AuditStore may be nil when request logging is disabled.
	AuditStore audit.Store
	Logger     *slog.Logger
}

// Server is the JSON status API.
type Server struct {
	router *chi.Mux
	opts   Options
	logger *slog.Logger
}

// NewServer creates a new status API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Handler == nil && opts.Observer != nil {
		opts.Handler = opts.Observer
	}
	s := &Server{
		router: chi.NewRouter(),
		opts:   opts,
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/whitelist", s.handleWhitelist)
		r.Get("/whitelist/stream", s.handleWhitelistStream)
		r.Get("/access", s.handleAccess)
		r.Post("/compile", s.handleCompile)
		r.Post("/permissions", s.handlePermissions)
		r.Post("/online", s.handleOnline)
		r.Post("/check", s.handleCheck)
		r.Get("/stats", s.handleStats)
		r.Get("/requests", s.handleRequests)
		r.Get("/requests/stream", s.handleRequestStream)
	})
}

// ListenAndServe starts the status API server.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("starting status API", "addr", s.opts.Addr)
	return srv.ListenAndServe()
}

// Handler returns the HTTP handler for embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.router
}
