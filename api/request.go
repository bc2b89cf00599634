package api

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Status is the result code a lifecycle hook hands back to the request engine.
// Anything other than StatusOK cancels the request.
type Status int

const (
	StatusOK        Status = 0
	StatusIOPending Status = -1
	StatusFailed    Status = -2
	StatusAborted   Status = -3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusIOPending:
		return "io_pending"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// AuthResponse is the return contract of the auth-required hook.
type AuthResponse int

const (
	// AuthNoAction defers to the engine's default credential handling.
	AuthNoAction AuthResponse = iota
	// AuthSetAuth means the hook filled in credentials.
	AuthSetAuth
	// AuthCancelAuth stops the auth attempt and surfaces the challenge response.
	AuthCancelAuth
	// AuthIOPending means credentials will be supplied asynchronously.
	AuthIOPending
)

// WaitState describes what a request is blocked on.
type WaitState int

const (
	WaitStart WaitState = iota
	WaitFinish
	WaitReset
)

// Request is the engine-owned handle observed by lifecycle hooks.
// Hooks must not keep it past their own invocation.
type Request struct {
	ID            string
	Method        string
	URL           *url.URL
	FirstPartyURL *url.URL
	StartTime     time.Time
}

// Host returns the lowercased request host without port.
func (r *Request) Host() string {
	if r == nil || r.URL == nil {
		return ""
	}
	return strings.ToLower(r.URL.Hostname())
}

// Scheme returns the request URL scheme.
func (r *Request) Scheme() string {
	if r == nil || r.URL == nil {
		return ""
	}
	return strings.ToLower(r.URL.Scheme)
}

// AuthChallenge carries the server's authentication challenge.
type AuthChallenge struct {
	Scheme    string
	Realm     string
	Challenge string
	IsProxy   bool
}

// Credentials is filled by a hook that answers AuthSetAuth.
type Credentials struct {
	Username string
	Password string
}

// CookieOptions accompany a set-cookie decision.
type CookieOptions struct {
	IncludeHTTPOnly bool
	ServerTime      time.Time
}

type headerField struct {
	key   string
	value string
}

// HeaderSet is an ordered header list with case-insensitive keys.
type HeaderSet struct {
	fields []headerField
}

// NewHeaderSet returns an empty header set.
func NewHeaderSet() *HeaderSet {
	return &HeaderSet{}
}

// HeaderSetFrom copies h into a header set. Keys are emitted in sorted order
// so the result is deterministic; each value of a multi-valued key keeps its
// own entry, so ToHTTP reproduces h exactly.
func HeaderSetFrom(h http.Header) *HeaderSet {
	keys := make([]string, 0, len(h))
	n := 0
	for k, vs := range h {
		keys = append(keys, k)
		n += len(vs)
	}
	sort.Strings(keys)

	hs := &HeaderSet{fields: make([]headerField, 0, n)}
	for _, k := range keys {
		for _, v := range h[k] {
			hs.fields = append(hs.fields, headerField{key: k, value: v})
		}
	}
	return hs
}

func (h *HeaderSet) index(key string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.key, key) {
			return i
		}
	}
	return -1
}

// Get returns the first value stored under key.
func (h *HeaderSet) Get(key string) (string, bool) {
	i := h.index(key)
	if i < 0 {
		return "", false
	}
	return h.fields[i].value, true
}

// Values returns every value stored under key, in order.
func (h *HeaderSet) Values(key string) []string {
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.key, key) {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether key is present in any letter case.
func (h *HeaderSet) Has(key string) bool {
	return h.index(key) >= 0
}

// Set stores value under key, replacing the first existing entry in place
// and dropping any further values of that key.
func (h *HeaderSet) Set(key, value string) {
	i := h.index(key)
	if i < 0 {
		h.fields = append(h.fields, headerField{key: key, value: value})
		return
	}
	h.fields[i].value = value
	h.removeFrom(i+1, key)
}

// SetIfMissing appends key only when no entry matches case-insensitively.
// It reports whether the set was modified.
func (h *HeaderSet) SetIfMissing(key, value string) bool {
	if h.Has(key) {
		return false
	}
	h.fields = append(h.fields, headerField{key: key, value: value})
	return true
}

// Remove deletes every value of key.
func (h *HeaderSet) Remove(key string) {
	h.removeFrom(0, key)
}

func (h *HeaderSet) removeFrom(start int, key string) {
	kept := h.fields[:start]
	for _, f := range h.fields[start:] {
		if !strings.EqualFold(f.key, key) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Len returns the number of entries, counting each value separately.
func (h *HeaderSet) Len() int { return len(h.fields) }

// Each visits entries in order.
func (h *HeaderSet) Each(fn func(key, value string)) {
	for _, f := range h.fields {
		fn(f.key, f.value)
	}
}

// ToHTTP converts the set back to an http.Header.
func (h *HeaderSet) ToHTTP() http.Header {
	out := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		out.Add(f.key, f.value)
	}
	return out
}
