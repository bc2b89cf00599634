package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/whitelist"
)

type stateResponse struct {
	Online           bool `json:"online"`
	Initialized      bool `json:"initialized"`
	WhitelistEntries int  `json:"whitelist_entries"`
}

type accessResponse struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Allowed bool   `json:"allowed"`
}

type compileRequest struct {
	BaseURL     string          `json:"base_url"`
	Permissions json.RawMessage `json:"permissions"`
}

type compileResponse struct {
	Entries []api.WhitelistEntry `json:"entries"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{}
	if s.opts.Online != nil {
		resp.Online = s.opts.Online.Online()
	}
	if s.opts.Observer != nil {
		resp.Initialized = s.opts.Observer.Initialized()
	}
	if s.opts.Registry != nil {
		resp.WhitelistEntries = s.opts.Registry.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	entries := []api.WhitelistEntry{}
	if s.opts.Registry != nil {
		entries = s.opts.Registry.Entries()
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleAccess reports whether a script loaded from source may reach target
// under the installed whitelist.
func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	if s.opts.Registry == nil {
		http.Error(w, "whitelist not configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	source, err := url.Parse(q.Get("source"))
	if err != nil || source.Scheme == "" {
		http.Error(w, "invalid source", http.StatusBadRequest)
		return
	}
	target, err := url.Parse(q.Get("target"))
	if err != nil || target.Scheme == "" {
		http.Error(w, "invalid target", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{
		Source:  source.String(),
		Target:  target.String(),
		Allowed: s.opts.Registry.IsAllowed(source, target),
	})
}

func (s *Server) handleWhitelistStream(w http.ResponseWriter, r *http.Request) {
	if s.opts.Registry == nil {
		http.Error(w, "whitelist not configured", http.StatusServiceUnavailable)
		return
	}
	ch, cancel := s.opts.Registry.Subscribe()
	defer cancel()
	streamEvents(w, r, "whitelist", ch)
}

// permissionsText accepts the permissions either as a JSON array or as a
// string holding one.
func permissionsText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	entries := whitelist.Compile(req.BaseURL, permissionsText(req.Permissions))
	if entries == nil {
		entries = []api.WhitelistEntry{}
	}
	writeJSON(w, http.StatusOK, compileResponse{Entries: entries})
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.dispatch(w, &api.ControlMessage{
		Kind: api.KindSetPermissions,
		SetPermissions: &api.SetPermissions{
			BaseURL:     req.BaseURL,
			Permissions: permissionsText(req.Permissions),
		},
	})
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	var req api.SetOnlineState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.dispatch(w, &api.ControlMessage{Kind: api.KindSetOnlineState, SetOnlineState: &req})
}

func (s *Server) dispatch(w http.ResponseWriter, msg *api.ControlMessage) {
	if s.opts.Handler == nil {
		http.Error(w, "control channel not configured", http.StatusServiceUnavailable)
		return
	}
	handled := s.opts.Handler.OnControlMessageReceived(msg)
	s.logger.Debug("control message from status API", "kind", msg.Kind, "handled", handled)
	writeJSON(w, http.StatusOK, api.HandledResult{Handled: handled})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if s.opts.Authority == nil {
		http.Error(w, "cookie authority not configured", http.StatusServiceUnavailable)
		return
	}
	var req api.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	target, err := url.Parse(req.URL)
	if err != nil || target.Scheme == "" {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}
	areq := &api.Request{ID: "check", Method: http.MethodGet, URL: target, StartTime: time.Now()}
	if req.FirstPartyURL != "" {
		if fp, err := url.Parse(req.FirstPartyURL); err == nil {
			areq.FirstPartyURL = fp
		}
	}

	var allowed bool
	switch req.Operation {
	case api.OperationSetCookie:
		allowed = s.opts.Authority.CanSetCookie(areq, req.CookieLine, &api.CookieOptions{ServerTime: time.Now()})
	case api.OperationGetCookies, "":
		var cookies []*http.Cookie
		if req.CookieLine != "" {
			cookies, _ = http.ParseCookie(req.CookieLine)
		}
		allowed = s.opts.Authority.CanGetCookies(areq, cookies)
	default:
		http.Error(w, fmt.Sprintf("unknown operation %q", req.Operation), http.StatusBadRequest)
		return
	}

	resp := api.CheckResponse{Allowed: allowed, Verdict: api.VerdictDeny}
	if allowed {
		resp.Verdict = api.VerdictAllow
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.AuditStore == nil {
		http.Error(w, "request log disabled", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.opts.AuditStore.Stats(r.Context())
	if err != nil {
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if s.opts.AuditStore == nil {
		http.Error(w, "request log disabled", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	filter := api.QueryFilter{
		Method: q.Get("method"),
		Host:   q.Get("host"),
		Limit:  100,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		filter.Since = t
	}

	records, err := s.opts.AuditStore.Query(r.Context(), filter)
	if err != nil {
		http.Error(w, "failed to query request log", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*api.RequestRecord{}
	}

	// Reverse to show newest first
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRequestStream(w http.ResponseWriter, r *http.Request) {
	if s.opts.AuditStore == nil {
		http.Error(w, "request log disabled", http.StatusServiceUnavailable)
		return
	}
	ch, cancel := s.opts.AuditStore.Subscribe(r.Context())
	defer cancel()
	streamEvents(w, r, "request", ch)
}

// streamEvents writes each value received on ch as a server-sent event until
// ch closes or the client goes away.
func streamEvents[T any](w http.ResponseWriter, r *http.Request, event string, ch <-chan T) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
