package urlpattern

import (
	"net/url"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		in         string
		scheme     string
		host       string
		subdomains bool
		path       string
	}{
		{"*://example.com/*", "*", "example.com", false, "/*"},
		{"http://*.example.com/*", "http", "example.com", true, "/*"},
		{"https://*/*", "https", "", true, "/*"},
		{"file:///android_asset/*", "file", "", false, "/android_asset/*"},
		{"file://localhost/foo", "file", "", false, "/foo"},
		{"file://*", "file", "", false, "/*"},
		{"file://foo*", "file", "", false, "/foo*"},
		{"chrome://settings/", "chrome", "settings", false, "/"},
		{"HTTP://Example.COM/Path", "http", "example.com", false, "/Path"},
		{"http://localhost:8080/*", "http", "localhost", false, "/*"},
		{"http://[::1]:*/*", "http", "[::1]", false, "/*"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Parse(SchemeAll, tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Scheme() != tt.scheme {
				t.Errorf("scheme: expected %q, got %q", tt.scheme, p.Scheme())
			}
			if p.Host() != tt.host {
				t.Errorf("host: expected %q, got %q", tt.host, p.Host())
			}
			if p.MatchSubdomains() != tt.subdomains {
				t.Errorf("subdomains: expected %v, got %v", tt.subdomains, p.MatchSubdomains())
			}
			if p.Path() != tt.path {
				t.Errorf("path: expected %q, got %q", tt.path, p.Path())
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		in   string
		code ErrorCode
	}{
		{"example.com", ErrMissingSchemeSeparator},
		{"://example.com/", ErrInvalidScheme},
		{"http:///path", ErrEmptyHost},
		{"http://example.com", ErrEmptyPath},
		{"http://foo.*.com/*", ErrInvalidHostWildcard},
		{"http://*foo.com/*", ErrInvalidHostWildcard},
		{"http://example.com:abc/*", ErrInvalidPort},
		{"http://example.com:/*", ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(SchemeAll, tt.in)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !IsCode(err, tt.code) {
				t.Errorf("expected code %d, got %v", tt.code, err)
			}
		})
	}
}

func TestParse_RestrictedSchemes(t *testing.T) {
	if _, err := Parse(SchemeHTTP|SchemeHTTPS, "file:///*"); !IsCode(err, ErrInvalidScheme) {
		t.Errorf("expected invalid scheme, got %v", err)
	}

	p, err := Parse(SchemeHTTP|SchemeHTTPS, "*://example.com/*")
	if err != nil {
		t.Fatal(err)
	}
	if p.MatchesScheme("file") {
		t.Error("expected file to be outside the valid scheme set")
	}
	if !p.MatchesScheme("https") {
		t.Error("expected https to match")
	}
}

func TestMatchesScheme_Wildcard(t *testing.T) {
	p, err := Parse(SchemeAll, "*://example.com/*")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"http", "https", "file", "chrome", "ftp"} {
		if !p.MatchesScheme(s) {
			t.Errorf("expected %s to match", s)
		}
	}
}

func TestAllURLs(t *testing.T) {
	p, err := Parse(SchemeAll, AllURLs)
	if err != nil {
		t.Fatal(err)
	}
	if !p.MatchesAllURLs() || !p.MatchSubdomains() || p.Host() != "" {
		t.Errorf("unexpected all_urls pattern: %+v", p)
	}
	u, _ := url.Parse("https://anything.test/x?y=1")
	if !p.MatchesURL(u) {
		t.Error("expected <all_urls> to match")
	}
}

func TestMatchesURL(t *testing.T) {
	tests := []struct {
		pattern string
		url     string
		want    bool
	}{
		{"http://*.example.com/*", "http://a.b.example.com/x", true},
		{"http://*.example.com/*", "http://example.com/", true},
		{"http://*.example.com/*", "http://badexample.com/", false},
		{"http://example.com/*", "http://sub.example.com/", false},
		{"http://example.com/api/*", "http://example.com/api/v1?x=1", true},
		{"http://example.com/api/*", "http://example.com/web", false},
		{"http://example.com/a[b]/*", "http://example.com/a[b]/c", true},
		{"https://example.com/*", "http://example.com/", false},
		{"http://example.com:8080/*", "http://example.com:8080/", true},
		{"http://example.com:8080/*", "http://example.com:9090/", false},
		{"file:///data/*", "file:///data/index.html", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.url, func(t *testing.T) {
			p, err := Parse(SchemeAll, tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if got := p.MatchesURL(u); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
