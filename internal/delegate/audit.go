package delegate

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/audit"
)

// Audit writes one api.RequestRecord per request when it completes.
// Scratch state lives until OnURLRequestDestroyed.
type Audit struct {
	Base
	store  audit.Store
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]*api.RequestRecord
}

// NewAudit creates an audit delegate writing to store.
func NewAudit(store audit.Store, logger *slog.Logger) *Audit {
	return &Audit{
		store:    store,
		logger:   logger,
		inFlight: make(map[string]*api.RequestRecord),
	}
}

// InFlight returns the number of requests with live scratch state.
func (a *Audit) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inFlight)
}

func (a *Audit) update(req *api.Request, fn func(r *api.RequestRecord)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.inFlight[req.ID]
	if !ok {
		ts := req.StartTime
		if ts.IsZero() {
			ts = time.Now()
		}
		r = &api.RequestRecord{
			ID:        req.ID,
			Timestamp: ts,
			Method:    req.Method,
			Host:      req.Host(),
		}
		if req.URL != nil {
			r.URL = req.URL.String()
		}
		a.inFlight[req.ID] = r
	}
	fn(r)
}

func (a *Audit) OnBeforeURLRequest(req *api.Request) (*url.URL, api.Status) {
	a.update(req, func(*api.RequestRecord) {})
	return nil, api.StatusOK
}

func (a *Audit) OnHeadersReceived(req *api.Request, statusCode int, _ http.Header) (http.Header, api.Status) {
	a.update(req, func(r *api.RequestRecord) { r.StatusCode = statusCode })
	return nil, api.StatusOK
}

func (a *Audit) OnBeforeRedirect(req *api.Request, _ *url.URL) {
	a.update(req, func(r *api.RequestRecord) { r.Redirects++ })
}

func (a *Audit) OnAuthRequired(req *api.Request, _ *api.AuthChallenge, _ *api.Credentials) api.AuthResponse {
	a.update(req, func(r *api.RequestRecord) { r.AuthRequired = true })
	return api.AuthNoAction
}

func (a *Audit) OnCanGetCookies(req *api.Request, _ []*http.Cookie) bool {
	a.update(req, func(r *api.RequestRecord) { r.CookieReads++ })
	return true
}

func (a *Audit) OnCanSetCookie(req *api.Request, _ string, _ *api.CookieOptions) bool {
	a.update(req, func(r *api.RequestRecord) { r.CookieWrites++ })
	return true
}

func (a *Audit) OnResponseStarted(req *api.Request) {
	a.update(req, func(r *api.RequestRecord) { r.Started = true })
}

func (a *Audit) OnRawBytesRead(req *api.Request, n int) {
	a.update(req, func(r *api.RequestRecord) { r.BytesRead += int64(n) })
}

func (a *Audit) OnRequestWaitStateChange(req *api.Request, state api.WaitState) {
	if state == api.WaitStart {
		a.update(req, func(r *api.RequestRecord) { r.Throttled = true })
	}
}

func (a *Audit) OnCompleted(req *api.Request, started bool) {
	var record api.RequestRecord
	a.update(req, func(r *api.RequestRecord) {
		r.Started = started
		r.Duration = time.Since(r.Timestamp)
		record = *r
	})
	if err := a.store.Write(context.Background(), &record); err != nil {
		a.logger.Error("writing request record", "request_id", req.ID, "error", err)
	}
}

func (a *Audit) OnURLRequestDestroyed(req *api.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inFlight, req.ID)
}
