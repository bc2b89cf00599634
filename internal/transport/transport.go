// Package transport drives the request lifecycle hooks around a net/http
// round trip.
package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/delegate"
)

// ErrRequestCanceled is returned when a hook answers with a non-OK status.
var ErrRequestCanceled = errors.New("request canceled by delegate")

// CanceledError names the hook that canceled a request.
type CanceledError struct {
	Hook   string
	Status api.Status
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s: %s returned %s", ErrRequestCanceled, e.Hook, e.Status)
}

func (e *CanceledError) Unwrap() error { return ErrRequestCanceled }

// RoundTripper wraps an inner transport and calls the delegate's hooks in
// lifecycle order for every request.
type RoundTripper struct {
	next     http.RoundTripper
	delegate delegate.Delegate
	logger   *slog.Logger

	// throttled bounds concurrent round trips of throttleable requests.
	throttled *semaphore.Weighted
}

// New creates a hook-driving transport. A nil next uses http.DefaultTransport.
func New(next http.RoundTripper, d delegate.Delegate, logger *slog.Logger) *RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RoundTripper{next: next, delegate: d, logger: logger}
}

// SetThrottleLimit allows at most n throttleable requests in flight at once.
// Requests the delegate does not mark as throttleable are never held back.
// n <= 0 removes the limit.
func (t *RoundTripper) SetThrottleLimit(n int) {
	if n <= 0 {
		t.throttled = nil
		return
	}
	t.throttled = semaphore.NewWeighted(int64(n))
}

func (t *RoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	d := t.delegate
	req := &api.Request{
		ID:            uuid.NewString(),
		Method:        r.Method,
		URL:           r.URL,
		FirstPartyURL: firstPartyURL(r),
		StartTime:     time.Now(),
	}

	fail := func(err error) (*http.Response, error) {
		d.OnCompleted(req, false)
		d.OnURLRequestDestroyed(req)
		return nil, err
	}
	cancel := func(hook string, status api.Status) (*http.Response, error) {
		t.logger.Info("request canceled", "request_id", req.ID, "url", r.URL.String(), "hook", hook, "status", status.String())
		return fail(&CanceledError{Hook: hook, Status: status})
	}

	out := r.Clone(r.Context())

	newURL, status := d.OnBeforeURLRequest(req)
	if status != api.StatusOK {
		return cancel("before_url_request", status)
	}
	if newURL != nil {
		out.URL = newURL
		out.Host = ""
		req.URL = newURL
	}

	if out.Header.Get("Cookie") != "" && !d.OnCanGetCookies(req, out.Cookies()) {
		out.Header.Del("Cookie")
	}

	headers := api.HeaderSetFrom(out.Header)
	if status := d.OnBeforeSendHeaders(req, headers); status != api.StatusOK {
		return cancel("before_send_headers", status)
	}
	out.Header = headers.ToHTTP()
	d.OnSendHeaders(req, headers)

	release, err := t.acquire(req, out)
	if err != nil {
		return fail(err)
	}
	resp, err := t.next.RoundTrip(out)
	release()
	if err != nil {
		return fail(err)
	}

	override, status := d.OnHeadersReceived(req, resp.StatusCode, resp.Header)
	if status != api.StatusOK {
		resp.Body.Close()
		return cancel("headers_received", status)
	}
	if override != nil {
		resp.Header = override
	}

	if isRedirect(resp.StatusCode) {
		if loc, err := resp.Location(); err == nil {
			d.OnBeforeRedirect(req, loc)
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusProxyAuthRequired {
		resp, err = t.authenticate(req, out, resp)
		if err != nil {
			return fail(err)
		}
	}

	t.filterSetCookies(req, resp)

	d.OnResponseStarted(req)
	resp.Body = &body{rc: resp.Body, req: req, delegate: d}
	return resp, nil
}

// acquire holds a throttleable request until a slot is free.
func (t *RoundTripper) acquire(req *api.Request, out *http.Request) (func(), error) {
	sem := t.throttled
	if sem == nil || !t.delegate.OnCanThrottleRequest(req) {
		return func() {}, nil
	}
	t.delegate.OnRequestWaitStateChange(req, api.WaitStart)
	err := sem.Acquire(out.Context(), 1)
	t.delegate.OnRequestWaitStateChange(req, api.WaitFinish)
	if err != nil {
		return nil, fmt.Errorf("waiting for throttle slot: %w", err)
	}
	return func() { sem.Release(1) }, nil
}

// authenticate runs the auth hook and, if it supplied credentials, retries
// once with basic auth.
func (t *RoundTripper) authenticate(req *api.Request, out *http.Request, resp *http.Response) (*http.Response, error) {
	header := "WWW-Authenticate"
	proxy := resp.StatusCode == http.StatusProxyAuthRequired
	if proxy {
		header = "Proxy-Authenticate"
	}
	challenge := parseChallenge(resp.Header.Get(header))
	challenge.IsProxy = proxy

	creds := &api.Credentials{}
	if t.delegate.OnAuthRequired(req, challenge, creds) != api.AuthSetAuth || creds.Username == "" {
		return resp, nil
	}

	retry := out.Clone(out.Context())
	if out.Body != nil && out.Body != http.NoBody {
		if out.GetBody == nil {
			t.logger.Debug("cannot replay request body for auth", "request_id", req.ID)
			return resp, nil
		}
		b, err := out.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		retry.Body = b
	}
	if proxy {
		retry.Header.Set("Proxy-Authorization", basicAuth(creds))
	} else {
		retry.SetBasicAuth(creds.Username, creds.Password)
	}

	resp.Body.Close()
	return t.next.RoundTrip(retry)
}

func (t *RoundTripper) filterSetCookies(req *api.Request, resp *http.Response) {
	lines := resp.Header.Values("Set-Cookie")
	if len(lines) == 0 {
		return
	}
	opts := &api.CookieOptions{IncludeHTTPOnly: true}
	if date, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		opts.ServerTime = date
	}

	var kept []string
	for _, line := range lines {
		if t.delegate.OnCanSetCookie(req, line, opts) {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return
	}
	resp.Header.Del("Set-Cookie")
	for _, line := range kept {
		resp.Header.Add("Set-Cookie", line)
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func firstPartyURL(r *http.Request) *url.URL {
	for _, h := range []string{"Origin", "Referer"} {
		v := r.Header.Get(h)
		if v == "" || v == "null" {
			continue
		}
		if u, err := url.Parse(v); err == nil && u.Host != "" {
			return u
		}
	}
	return nil
}

func parseChallenge(v string) *api.AuthChallenge {
	c := &api.AuthChallenge{Challenge: v}
	scheme, params, _ := strings.Cut(v, " ")
	c.Scheme = strings.ToLower(scheme)
	for _, p := range strings.Split(params, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(k, "realm") {
			c.Realm = strings.Trim(val, `"`)
		}
	}
	return c
}

func basicAuth(creds *api.Credentials) string {
	r := &http.Request{Header: http.Header{}}
	r.SetBasicAuth(creds.Username, creds.Password)
	return r.Header.Get("Authorization")
}

// body reports bytes read and finishes the request lifecycle at EOF or Close.
type body struct {
	rc       io.ReadCloser
	req      *api.Request
	delegate delegate.Delegate
	once     sync.Once
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.delegate.OnRawBytesRead(b.req, n)
	}
	if err != nil {
		b.finish()
	}
	return n, err
}

func (b *body) Close() error {
	err := b.rc.Close()
	b.finish()
	return err
}

func (b *body) finish() {
	b.once.Do(func() {
		b.delegate.OnCompleted(b.req, true)
		b.delegate.OnURLRequestDestroyed(b.req)
	})
}
