// Package urlpattern parses and matches URL match patterns such as
// "*://*.example.com/*" and "<all_urls>".
package urlpattern

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// AllURLs is the pattern that matches every URL with a valid scheme.
const AllURLs = "<all_urls>"

const schemeSeparator = "://"

// SchemeSet is a bitmask of schemes a pattern is allowed to match.
type SchemeSet uint32

const (
	SchemeHTTP SchemeSet = 1 << iota
	SchemeHTTPS
	SchemeFile
	SchemeFTP
	SchemeChromeUI
	SchemeFileSystem

	// SchemeAll also accepts schemes that have no bit of their own.
	SchemeAll SchemeSet = ^SchemeSet(0)
)

var schemeBits = map[string]SchemeSet{
	"http":       SchemeHTTP,
	"https":      SchemeHTTPS,
	"file":       SchemeFile,
	"ftp":        SchemeFTP,
	"chrome":     SchemeChromeUI,
	"filesystem": SchemeFileSystem,
}

// Contains reports whether scheme is accepted by the set.
func (s SchemeSet) Contains(scheme string) bool {
	if s == SchemeAll {
		return true
	}
	bit, ok := schemeBits[strings.ToLower(scheme)]
	return ok && s&bit != 0
}

// ErrorCode identifies why a pattern failed to parse.
type ErrorCode int

const (
	ErrMissingSchemeSeparator ErrorCode = iota + 1
	ErrInvalidScheme
	ErrEmptyHost
	ErrInvalidHostWildcard
	ErrEmptyPath
	ErrInvalidPort
	ErrInvalidPath
)

var errorText = map[ErrorCode]string{
	ErrMissingSchemeSeparator: "missing scheme separator",
	ErrInvalidScheme:          "invalid scheme",
	ErrEmptyHost:              "empty host",
	ErrInvalidHostWildcard:    "host wildcard must be a leading '*.'",
	ErrEmptyPath:              "empty path",
	ErrInvalidPort:            "invalid port",
	ErrInvalidPath:            "invalid path",
}

// ParseError reports a malformed pattern.
type ParseError struct {
	Pattern string
	Code    ErrorCode
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("url pattern %q: %s", e.Pattern, errorText[e.Code])
}

// IsCode reports whether err is a ParseError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Code == code
}

// Pattern is a parsed match pattern. It is immutable once returned by Parse.
type Pattern struct {
	raw             string
	valid           SchemeSet
	scheme          string
	host            string
	matchSubdomains bool
	port            string
	path            string
	matchAll        bool
	pathGlob        glob.Glob
}

// Parse parses s, restricting matchable schemes to valid.
func Parse(valid SchemeSet, s string) (*Pattern, error) {
	p := &Pattern{raw: s, valid: valid, port: "*"}

	if s == AllURLs {
		p.matchAll = true
		p.scheme = "*"
		p.matchSubdomains = true
		p.path = "/*"
		return p, p.compilePath()
	}

	fail := func(code ErrorCode) (*Pattern, error) {
		return nil, &ParseError{Pattern: s, Code: code}
	}

	sep := strings.Index(s, schemeSeparator)
	if sep < 0 {
		return fail(ErrMissingSchemeSeparator)
	}
	p.scheme = strings.ToLower(s[:sep])
	if p.scheme == "" || (p.scheme != "*" && !valid.Contains(p.scheme)) {
		return fail(ErrInvalidScheme)
	}

	rest := s[sep+len(schemeSeparator):]

	// file URLs carry no host. Any host text is ignored, so file://localhost/foo
	// is file:///foo, and with no path at all file://* is file:///*.
	if p.scheme == "file" {
		if slash := strings.Index(rest, "/"); slash >= 0 {
			p.path = rest[slash:]
		} else {
			p.path = "/" + rest
		}
		return p, p.compilePath()
	}

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return fail(ErrEmptyPath)
	}
	hostPort, path := rest[:slash], rest[slash:]
	if hostPort == "" {
		return fail(ErrEmptyHost)
	}

	host, port, err := splitHostPort(hostPort)
	if err != nil {
		return fail(ErrInvalidPort)
	}
	if port != "" {
		p.port = port
	}

	switch {
	case host == "*":
		p.matchSubdomains = true
		host = ""
	case strings.HasPrefix(host, "*."):
		p.matchSubdomains = true
		host = host[2:]
	}
	if strings.Contains(host, "*") {
		return fail(ErrInvalidHostWildcard)
	}
	p.host = strings.ToLower(host)
	p.path = path
	return p, p.compilePath()
}

func splitHostPort(hostPort string) (host, port string, err error) {
	// Skip over a bracketed IPv6 literal before looking for the port.
	start := 0
	if strings.HasPrefix(hostPort, "[") {
		end := strings.Index(hostPort, "]")
		if end < 0 {
			return "", "", errors.New("unterminated IPv6 literal")
		}
		start = end
	}
	i := strings.LastIndex(hostPort[start:], ":")
	if i < 0 {
		return hostPort, "", nil
	}
	i += start
	host, port = hostPort[:i], hostPort[i+1:]
	if port == "*" {
		return host, port, nil
	}
	if port == "" {
		return "", "", errors.New("empty port")
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return "", "", fmt.Errorf("non-numeric port %q", port)
		}
	}
	return host, port, nil
}

func (p *Pattern) compilePath() error {
	parts := strings.Split(p.path, "*")
	for i := range parts {
		parts[i] = glob.QuoteMeta(parts[i])
	}
	g, err := glob.Compile(strings.Join(parts, "*"))
	if err != nil {
		return &ParseError{Pattern: p.raw, Code: ErrInvalidPath}
	}
	p.pathGlob = g
	return nil
}

// String returns the source text of the pattern.
func (p *Pattern) String() string { return p.raw }

// Scheme returns the scheme component ("*" for any).
func (p *Pattern) Scheme() string { return p.scheme }

// Host returns the host without the subdomain wildcard.
func (p *Pattern) Host() string { return p.host }

// MatchSubdomains reports whether the host had a leading wildcard.
func (p *Pattern) MatchSubdomains() bool { return p.matchSubdomains }

// Port returns the port component ("*" for any).
func (p *Pattern) Port() string { return p.port }

// Path returns the path component.
func (p *Pattern) Path() string { return p.path }

// MatchesAllURLs reports whether the pattern was "<all_urls>".
func (p *Pattern) MatchesAllURLs() bool { return p.matchAll }

// MatchesScheme reports whether the pattern covers scheme.
func (p *Pattern) MatchesScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	if !p.valid.Contains(scheme) {
		return false
	}
	return p.scheme == "*" || p.scheme == scheme
}

// MatchesHost reports whether host is covered, honouring the subdomain flag.
func (p *Pattern) MatchesHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if p.host == "" && p.matchSubdomains {
		return true
	}
	if host == p.host {
		return true
	}
	if !p.matchSubdomains {
		return false
	}
	return strings.HasSuffix(host, "."+p.host)
}

// MatchesPath reports whether path (with any query) is covered.
func (p *Pattern) MatchesPath(path string) bool {
	return p.pathGlob.Match(path)
}

// MatchesURL reports whether u is covered by the pattern.
func (p *Pattern) MatchesURL(u *url.URL) bool {
	if u == nil || !p.MatchesScheme(u.Scheme) {
		return false
	}
	if !strings.EqualFold(u.Scheme, "file") && !p.MatchesHost(u.Hostname()) {
		return false
	}
	if p.port != "*" && u.Port() != p.port {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.MatchesPath(path)
}
