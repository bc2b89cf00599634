package api

import (
	"time"
)

// Verdict represents the outcome of a cookie policy evaluation.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
)

// Cookie operations understood by the policy engines.
const (
	OperationGetCookies = "get_cookies"
	OperationSetCookie  = "set_cookie"
)

// Schemes the engine grants origin access for.
const (
	SchemeHTTP     = "http"
	SchemeHTTPS    = "https"
	SchemeFile     = "file"
	SchemeChromeUI = "chrome"
)

// WhitelistEntry grants scripts from BaseURL's origin access to Scheme://Host.
type WhitelistEntry struct {
	BaseURL         string `json:"base_url"`
	Scheme          string `json:"scheme"`
	Host            string `json:"host"`
	AllowSubdomains bool   `json:"allow_subdomains"`
}

// RequestRecord is the audit trail of one request's lifecycle.
type RequestRecord struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Method       string        `json:"method"`
	URL          string        `json:"url"`
	Host         string        `json:"host,omitempty"`
	StatusCode   int           `json:"status_code,omitempty"`
	Started      bool          `json:"started"`
	Redirects    int           `json:"redirects,omitempty"`
	AuthRequired bool          `json:"auth_required,omitempty"`
	CookieReads  int           `json:"cookie_reads,omitempty"`
	CookieWrites int           `json:"cookie_writes,omitempty"`
	Throttled    bool          `json:"throttled,omitempty"`
	BytesRead    int64         `json:"bytes_read"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// QueryFilter defines criteria for querying request records.
type QueryFilter struct {
	Since  time.Time `json:"since,omitempty"`
	Until  time.Time `json:"until,omitempty"`
	Method string    `json:"method,omitempty"`
	Host   string    `json:"host,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// RequestStats provides summary statistics for the status API.
type RequestStats struct {
	TotalRequests int            `json:"total_requests"`
	Completed     int            `json:"completed"`
	NotStarted    int            `json:"not_started"`
	BytesRead     int64          `json:"bytes_read"`
	ByHost        map[string]int `json:"by_host"`
	ByStatus      map[int]int    `json:"by_status"`
}

// CheckRequest is used by the CLI `check` command and the status API.
type CheckRequest struct {
	Operation     string `json:"operation"`
	URL           string `json:"url"`
	FirstPartyURL string `json:"first_party_url,omitempty"`
	CookieLine    string `json:"cookie_line,omitempty"`
}

// CheckResponse is the result of a cookie policy check.
type CheckResponse struct {
	Allowed bool    `json:"allowed"`
	Verdict Verdict `json:"verdict"`
}
