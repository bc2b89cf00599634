// Package cookiepolicy answers cookie access questions for the request
// lifecycle delegate.
package cookiepolicy

import (
	"net/http"

	"github.com/tkingovr/originguard/api"
)

// Authority is the shared decision object for cookie questions.
type Authority interface {
	// CanGetCookies reports whether cookies may be attached to req.
	CanGetCookies(req *api.Request, cookies []*http.Cookie) bool

	// CanSetCookie reports whether a Set-Cookie line from req's response may be stored.
	CanSetCookie(req *api.Request, cookieLine string, opts *api.CookieOptions) bool
}

// Gate forwards cookie decisions to an Authority.
type Gate struct {
	authority Authority
}

// NewGate creates a gate backed by authority.
func NewGate(authority Authority) *Gate {
	return &Gate{authority: authority}
}

// GetCookiesAllowed returns the authority's decision for reading cookies.
func (g *Gate) GetCookiesAllowed(req *api.Request, cookies []*http.Cookie) bool {
	return g.authority.CanGetCookies(req, cookies)
}

// SetCookieAllowed returns the authority's decision for storing a cookie.
func (g *Gate) SetCookieAllowed(req *api.Request, cookieLine string, opts *api.CookieOptions) bool {
	return g.authority.CanSetCookie(req, cookieLine, opts)
}

// All combines authorities; a cookie is allowed only if every one allows it.
func All(authorities ...Authority) Authority {
	return allOf(authorities)
}

type allOf []Authority

func (a allOf) CanGetCookies(req *api.Request, cookies []*http.Cookie) bool {
	for _, auth := range a {
		if !auth.CanGetCookies(req, cookies) {
			return false
		}
	}
	return true
}

func (a allOf) CanSetCookie(req *api.Request, cookieLine string, opts *api.CookieOptions) bool {
	for _, auth := range a {
		if !auth.CanSetCookie(req, cookieLine, opts) {
			return false
		}
	}
	return true
}
