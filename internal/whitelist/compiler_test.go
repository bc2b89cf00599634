package whitelist

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/registry"
)

const base = "file:///android_asset/index.html"

func newTestCompiler() (*Compiler, *registry.Memory) {
	reg := registry.NewMemory()
	return NewCompiler(reg, slog.New(slog.NewTextHandler(io.Discard, nil))), reg
}

func TestCompile_WildcardScheme(t *testing.T) {
	entries := Compile(base, `["*://example.com/*"]`)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d: %+v", len(entries), entries)
	}
	for i, scheme := range []string{"http", "https", "file", "chrome"} {
		want := api.WhitelistEntry{BaseURL: base, Scheme: scheme, Host: "example.com", AllowSubdomains: false}
		if entries[i] != want {
			t.Errorf("entry %d: expected %+v, got %+v", i, want, entries[i])
		}
	}
}

func TestCompile_SubdomainWildcard(t *testing.T) {
	entries := Compile(base, `["http://*.example.com/*"]`)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	want := api.WhitelistEntry{BaseURL: base, Scheme: "http", Host: "example.com", AllowSubdomains: true}
	if entries[0] != want {
		t.Errorf("expected %+v, got %+v", want, entries[0])
	}
}

func TestCompile_EmptyOrMalformed(t *testing.T) {
	tests := []struct {
		name, base, perms string
	}{
		{"empty permissions", base, ""},
		{"empty base", "", `["*://example.com/*"]`},
		{"not json", base, "not json"},
		{"object", base, "{}"},
		{"string", base, `"http://example.com/*"`},
		{"truncated", base, `["http://example.com/*"`},
		{"empty list", base, "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compile(tt.base, tt.perms); len(got) != 0 {
				t.Errorf("expected no entries, got %+v", got)
			}
		})
	}
}

func TestCompile_SkipsBadElements(t *testing.T) {
	perms := `[42, "http://a.test/*", null, "no-separator", {"x":1}, "https://*.b.test/*", "http://bad*.test/*", true]`
	entries := Compile(base, perms)

	want := []api.WhitelistEntry{
		{BaseURL: base, Scheme: "http", Host: "a.test"},
		{BaseURL: base, Scheme: "https", Host: "b.test", AllowSubdomains: true},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("expected %+v, got %+v", want, entries)
	}
}

func TestCompile_CountIsSumOfMatchingSchemes(t *testing.T) {
	tests := []struct {
		perm string
		want int
	}{
		{"*://example.com/*", 4},
		{"<all_urls>", 4},
		{"http://example.com/*", 1},
		{"https://example.com/*", 1},
		{"file:///android_asset/*", 1},
		{"file://localhost/foo", 1},
		{"file://*", 1},
		{"chrome://settings/*", 1},
		{"ftp://example.com/*", 0},
		{"wss://example.com/*", 0},
	}
	total := 0
	perms := "["
	for i, tt := range tests {
		if got := len(Compile(base, `["`+tt.perm+`"]`)); got != tt.want {
			t.Errorf("%s: expected %d entries, got %d", tt.perm, tt.want, got)
		}
		if i > 0 {
			perms += ","
		}
		perms += `"` + tt.perm + `"`
		total += tt.want
	}
	perms += "]"
	if got := len(Compile(base, perms)); got != total {
		t.Errorf("combined list: expected %d entries, got %d", total, got)
	}
}

func TestCompiler_InstallOrderAndAdditivity(t *testing.T) {
	c, reg := newTestCompiler()

	n := c.Install(base, `["https://b.test/*", "*://a.test/*"]`)
	if n != 5 {
		t.Fatalf("expected 5 installed, got %d", n)
	}
	got := reg.Entries()
	order := []string{"https b.test", "http a.test", "https a.test", "file a.test", "chrome a.test"}
	for i, e := range got {
		if e.Scheme+" "+e.Host != order[i] {
			t.Errorf("entry %d: expected %s, got %s %s", i, order[i], e.Scheme, e.Host)
		}
	}

	// A second declaration adds to, and never replaces, earlier grants.
	c.Install(base, `["https://b.test/*"]`)
	if reg.Len() != 6 {
		t.Errorf("expected 6 entries after second install, got %d", reg.Len())
	}

	if c.Install(base, "{}") != 0 || reg.Len() != 6 {
		t.Error("expected malformed payload to install nothing")
	}
}

func TestSchemes(t *testing.T) {
	want := []string{"http", "https", "file", "chrome"}
	if got := Schemes(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCompile_FileHostIgnored(t *testing.T) {
	want := api.WhitelistEntry{BaseURL: base, Scheme: "file"}
	for _, perm := range []string{"file://localhost/foo", "file://*", "file:///*"} {
		entries := Compile(base, `["`+perm+`"]`)
		if len(entries) != 1 || entries[0] != want {
			t.Errorf("%s: expected %+v, got %+v", perm, want, entries)
		}
	}
}
