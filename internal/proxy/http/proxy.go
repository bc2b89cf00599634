package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/tkingovr/originguard/internal/delegate"
	"github.com/tkingovr/originguard/internal/transport"
)

// Proxy is an HTTP reverse proxy that runs every upstream request through
// the request lifecycle hooks.
type Proxy struct {
	target       *url.URL
	reverseProxy *httputil.ReverseProxy
	transport    *transport.RoundTripper
	logger       *slog.Logger
}

// NewProxy creates a new proxy targeting the given URL.
func NewProxy(target string, d delegate.Delegate, logger *slog.Logger) (*Proxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid target URL %q: scheme and host are required", target)
	}

	p := &Proxy{
		target: u,
		logger: logger,
	}

	rp := httputil.NewSingleHostReverseProxy(u)
	director := rp.Director
	rp.Director = func(req *http.Request) {
		director(req)
		req.Host = u.Host
	}
	p.transport = transport.New(nil, d, logger)
	rp.Transport = p.transport
	rp.ErrorHandler = p.errorHandler
	p.reverseProxy = rp

	return p, nil
}

// SetThrottleLimit bounds concurrent upstream requests the hooks mark as
// throttleable.
func (p *Proxy) SetThrottleLimit(n int) {
	p.transport.SetThrottleLimit(n)
}

// ServeHTTP handles incoming HTTP requests.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.reverseProxy.ServeHTTP(w, r)
}

func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, transport.ErrRequestCanceled) {
		p.logger.Warn("request blocked", "url", r.URL.String(), "error", err)
		http.Error(w, "request blocked", http.StatusForbidden)
		return
	}
	p.logger.Error("proxy error", "error", err, "url", r.URL.String())
	http.Error(w, "proxy error: "+err.Error(), http.StatusBadGateway)
}

// Handler returns an http.Handler for use with http.Server.
func (p *Proxy) Handler() http.Handler {
	return p
}

// ListenAndServe starts the HTTP proxy server.
func (p *Proxy) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: p,
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	p.logger.Info("starting HTTP proxy",
		"listen", addr,
		"target", p.target.String(),
	)

	return srv.ListenAndServe()
}
