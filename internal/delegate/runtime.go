package delegate

import (
	"net/http"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/cookiepolicy"
)

// RequestedWithHeader identifies the embedding application to servers.
const RequestedWithHeader = "X-Requested-With"

// Runtime is the delegate installed for every request. It tags outgoing
// requests with the application's package name and hands cookie questions
// to the gate. All other hooks keep Base's behaviour: file access allowed,
// no throttling, default credential handling.
type Runtime struct {
	Base
	packageName string
	gate        *cookiepolicy.Gate
}

// NewRuntime creates the runtime delegate.
func NewRuntime(packageName string, gate *cookiepolicy.Gate) *Runtime {
	return &Runtime{packageName: packageName, gate: gate}
}

// PackageName returns the value injected into X-Requested-With.
func (r *Runtime) PackageName() string { return r.packageName }

func (r *Runtime) OnBeforeSendHeaders(_ *api.Request, headers *api.HeaderSet) api.Status {
	headers.SetIfMissing(RequestedWithHeader, r.packageName)
	return api.StatusOK
}

func (r *Runtime) OnCanGetCookies(req *api.Request, cookies []*http.Cookie) bool {
	return r.gate.GetCookiesAllowed(req, cookies)
}

func (r *Runtime) OnCanSetCookie(req *api.Request, cookieLine string, opts *api.CookieOptions) bool {
	return r.gate.SetCookieAllowed(req, cookieLine, opts)
}
