package cookiepolicy

import (
	"net/http"
	"sync/atomic"

	"github.com/tkingovr/originguard/api"
)

// Static is the cookie manager's global switchboard: one flag to accept
// cookies at all and one to permit cookies on file:// URLs.
type Static struct {
	accept          atomic.Bool
	allowFileScheme atomic.Bool
}

// NewStatic returns an authority that accepts cookies and rejects them for
// file URLs.
func NewStatic() *Static {
	s := &Static{}
	s.accept.Store(true)
	return s
}

// SetAcceptCookie toggles cookie acceptance.
func (s *Static) SetAcceptCookie(accept bool) { s.accept.Store(accept) }

// AcceptCookie reports whether cookies are accepted.
func (s *Static) AcceptCookie() bool { return s.accept.Load() }

// SetAllowFileSchemeCookies toggles cookies for file:// URLs.
func (s *Static) SetAllowFileSchemeCookies(allow bool) { s.allowFileScheme.Store(allow) }

// AllowFileSchemeCookies reports whether file:// URLs may use cookies.
func (s *Static) AllowFileSchemeCookies() bool { return s.allowFileScheme.Load() }

func (s *Static) CanGetCookies(req *api.Request, _ []*http.Cookie) bool {
	return s.allowed(req)
}

func (s *Static) CanSetCookie(req *api.Request, _ string, _ *api.CookieOptions) bool {
	return s.allowed(req)
}

func (s *Static) allowed(req *api.Request) bool {
	if !s.accept.Load() {
		return false
	}
	if req.Scheme() == api.SchemeFile {
		return s.allowFileScheme.Load()
	}
	return true
}
