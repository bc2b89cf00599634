// Package delegate defines the request lifecycle hooks the request engine
// calls for every request, and the delegates that implement them.
package delegate

import (
	"net/http"
	"net/url"

	"github.com/tkingovr/originguard/api"
)

// Delegate receives lifecycle callbacks for a request. Hooks fire in this
// order: OnBeforeURLRequest, OnBeforeSendHeaders, OnSendHeaders,
// OnHeadersReceived, OnBeforeRedirect (0..n), OnAuthRequired (0..1),
// OnCanGetCookies/OnCanSetCookie (0..n, interleaved), OnResponseStarted,
// OnRawBytesRead (0..n), OnCompleted, OnURLRequestDestroyed.
//
// Hooks run synchronously on the goroutine serving the request and must not
// keep req after returning. A Status other than api.StatusOK cancels the
// request.
type Delegate interface {
	// OnBeforeURLRequest may return a non-nil URL to redirect the request.
	OnBeforeURLRequest(req *api.Request) (*url.URL, api.Status)
	OnBeforeSendHeaders(req *api.Request, headers *api.HeaderSet) api.Status
	OnSendHeaders(req *api.Request, headers *api.HeaderSet)
	// OnHeadersReceived may return replacement response headers.
	OnHeadersReceived(req *api.Request, statusCode int, headers http.Header) (http.Header, api.Status)
	OnBeforeRedirect(req *api.Request, location *url.URL)
	OnResponseStarted(req *api.Request)
	OnRawBytesRead(req *api.Request, n int)
	OnCompleted(req *api.Request, started bool)
	OnURLRequestDestroyed(req *api.Request)
	OnPACScriptError(line int, msg string)
	OnAuthRequired(req *api.Request, challenge *api.AuthChallenge, creds *api.Credentials) api.AuthResponse
	OnCanGetCookies(req *api.Request, cookies []*http.Cookie) bool
	OnCanSetCookie(req *api.Request, cookieLine string, opts *api.CookieOptions) bool
	OnCanAccessFile(req *api.Request, path string) bool
	OnCanThrottleRequest(req *api.Request) bool
	OnBeforeSocketStreamConnect(u *url.URL) api.Status
	OnRequestWaitStateChange(req *api.Request, state api.WaitState)
}

// Base implements every hook as a no-op that lets the request proceed.
// Embed it and override only the hooks you need.
type Base struct{}

var _ Delegate = Base{}

func (Base) OnBeforeURLRequest(*api.Request) (*url.URL, api.Status) { return nil, api.StatusOK }

func (Base) OnBeforeSendHeaders(*api.Request, *api.HeaderSet) api.Status { return api.StatusOK }

func (Base) OnSendHeaders(*api.Request, *api.HeaderSet) {}

func (Base) OnHeadersReceived(*api.Request, int, http.Header) (http.Header, api.Status) {
	return nil, api.StatusOK
}

func (Base) OnBeforeRedirect(*api.Request, *url.URL) {}

func (Base) OnResponseStarted(*api.Request) {}

func (Base) OnRawBytesRead(*api.Request, int) {}

func (Base) OnCompleted(*api.Request, bool) {}

func (Base) OnURLRequestDestroyed(*api.Request) {}

func (Base) OnPACScriptError(int, string) {}

func (Base) OnAuthRequired(*api.Request, *api.AuthChallenge, *api.Credentials) api.AuthResponse {
	return api.AuthNoAction
}

func (Base) OnCanGetCookies(*api.Request, []*http.Cookie) bool { return true }

func (Base) OnCanSetCookie(*api.Request, string, *api.CookieOptions) bool { return true }

func (Base) OnCanAccessFile(*api.Request, string) bool { return true }

func (Base) OnCanThrottleRequest(*api.Request) bool { return false }

func (Base) OnBeforeSocketStreamConnect(*url.URL) api.Status { return api.StatusOK }

func (Base) OnRequestWaitStateChange(*api.Request, api.WaitState) {}
