package delegate

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tkingovr/originguard/api"
)

// Chain fans every hook out to its delegates in registration order.
// All delegates see every hook; when several disagree the chain returns the
// first non-OK status, ANDs cookie and file decisions, ORs throttling and
// takes the first auth response other than AuthNoAction.
type Chain struct {
	delegates []Delegate
	logger    *slog.Logger
}

var _ Delegate = (*Chain)(nil)

// NewChain creates a new delegate chain.
func NewChain(logger *slog.Logger, delegates ...Delegate) *Chain {
	return &Chain{
		delegates: delegates,
		logger:    logger,
	}
}

// Add appends a delegate to the chain.
func (c *Chain) Add(d Delegate) {
	c.delegates = append(c.delegates, d)
}

// Len returns the number of delegates.
func (c *Chain) Len() int { return len(c.delegates) }

func (c *Chain) OnBeforeURLRequest(req *api.Request) (*url.URL, api.Status) {
	var newURL *url.URL
	status := api.StatusOK
	for _, d := range c.delegates {
		u, s := d.OnBeforeURLRequest(req)
		if newURL == nil && u != nil {
			newURL = u
		}
		status = c.merge(status, s, "before_url_request", d, req)
	}
	return newURL, status
}

func (c *Chain) OnBeforeSendHeaders(req *api.Request, headers *api.HeaderSet) api.Status {
	status := api.StatusOK
	for _, d := range c.delegates {
		status = c.merge(status, d.OnBeforeSendHeaders(req, headers), "before_send_headers", d, req)
	}
	return status
}

func (c *Chain) OnSendHeaders(req *api.Request, headers *api.HeaderSet) {
	for _, d := range c.delegates {
		d.OnSendHeaders(req, headers)
	}
}

func (c *Chain) OnHeadersReceived(req *api.Request, statusCode int, headers http.Header) (http.Header, api.Status) {
	var override http.Header
	status := api.StatusOK
	for _, d := range c.delegates {
		current := headers
		if override != nil {
			current = override
		}
		h, s := d.OnHeadersReceived(req, statusCode, current)
		if h != nil {
			override = h
		}
		status = c.merge(status, s, "headers_received", d, req)
	}
	return override, status
}

func (c *Chain) OnBeforeRedirect(req *api.Request, location *url.URL) {
	for _, d := range c.delegates {
		d.OnBeforeRedirect(req, location)
	}
}

func (c *Chain) OnResponseStarted(req *api.Request) {
	for _, d := range c.delegates {
		d.OnResponseStarted(req)
	}
}

func (c *Chain) OnRawBytesRead(req *api.Request, n int) {
	for _, d := range c.delegates {
		d.OnRawBytesRead(req, n)
	}
}

func (c *Chain) OnCompleted(req *api.Request, started bool) {
	for _, d := range c.delegates {
		d.OnCompleted(req, started)
	}
}

func (c *Chain) OnURLRequestDestroyed(req *api.Request) {
	for _, d := range c.delegates {
		d.OnURLRequestDestroyed(req)
	}
}

func (c *Chain) OnPACScriptError(line int, msg string) {
	for _, d := range c.delegates {
		d.OnPACScriptError(line, msg)
	}
}

func (c *Chain) OnAuthRequired(req *api.Request, challenge *api.AuthChallenge, creds *api.Credentials) api.AuthResponse {
	resp := api.AuthNoAction
	for _, d := range c.delegates {
		r := d.OnAuthRequired(req, challenge, creds)
		if resp == api.AuthNoAction {
			resp = r
		}
	}
	return resp
}

func (c *Chain) OnCanGetCookies(req *api.Request, cookies []*http.Cookie) bool {
	allowed := true
	for _, d := range c.delegates {
		if !d.OnCanGetCookies(req, cookies) {
			allowed = false
		}
	}
	return allowed
}

func (c *Chain) OnCanSetCookie(req *api.Request, cookieLine string, opts *api.CookieOptions) bool {
	allowed := true
	for _, d := range c.delegates {
		if !d.OnCanSetCookie(req, cookieLine, opts) {
			allowed = false
		}
	}
	return allowed
}

func (c *Chain) OnCanAccessFile(req *api.Request, path string) bool {
	allowed := true
	for _, d := range c.delegates {
		if !d.OnCanAccessFile(req, path) {
			allowed = false
		}
	}
	return allowed
}

func (c *Chain) OnCanThrottleRequest(req *api.Request) bool {
	throttle := false
	for _, d := range c.delegates {
		if d.OnCanThrottleRequest(req) {
			throttle = true
		}
	}
	return throttle
}

func (c *Chain) OnBeforeSocketStreamConnect(u *url.URL) api.Status {
	status := api.StatusOK
	for _, d := range c.delegates {
		status = c.merge(status, d.OnBeforeSocketStreamConnect(u), "before_socket_stream_connect", d, nil)
	}
	return status
}

func (c *Chain) OnRequestWaitStateChange(req *api.Request, state api.WaitState) {
	for _, d := range c.delegates {
		d.OnRequestWaitStateChange(req, state)
	}
}

// merge keeps the first non-OK status.
func (c *Chain) merge(current, next api.Status, hook string, d Delegate, req *api.Request) api.Status {
	if next == api.StatusOK || current != api.StatusOK {
		return current
	}
	attrs := []any{"hook", hook, "delegate", delegateName(d), "status", next.String()}
	if req != nil {
		attrs = append(attrs, "request_id", req.ID)
	}
	c.logger.Debug("delegate returned non-ok status", attrs...)
	return next
}

func delegateName(d Delegate) string {
	switch d.(type) {
	case *Runtime:
		return "runtime"
	case *Audit:
		return "audit"
	case *Throttle:
		return "throttle"
	case *Chain:
		return "chain"
	default:
		return "custom"
	}
}
