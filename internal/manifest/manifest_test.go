package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/whitelist"
)

const sample = `{
  "name": "demo",
  "local_path": "./www/index.html",
  "permissions": [
    "*://example.com/*",
    "http://*.cdn.test/*"
  ]
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample), DefaultAssetsBaseURL)
	if err != nil {
		t.Fatal(err)
	}
	if m.LocalPath != "file:///android_asset/www/index.html" {
		t.Errorf("unexpected local path %q", m.LocalPath)
	}
	if m.Permissions != `["*://example.com/*","http://*.cdn.test/*"]` {
		t.Errorf("unexpected permissions %q", m.Permissions)
	}

	cm := m.ControlMessage()
	if cm.Kind != api.KindSetPermissions || cm.SetPermissions.BaseURL != m.LocalPath {
		t.Errorf("unexpected control message %+v", cm)
	}
	if n := len(whitelist.Compile(cm.SetPermissions.BaseURL, cm.SetPermissions.Permissions)); n != 5 {
		t.Errorf("expected manifest permissions to compile to 5 entries, got %d", n)
	}
}

func TestParse_LocalPathPrefixes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"index.html", "https://assets.test/index.html"},
		{"/index.html", "https://assets.test/index.html"},
		{"./index.html", "https://assets.test/index.html"},
		{".//index.html", "https://assets.test/index.html"},
	}
	for _, tt := range tests {
		data := `{"permissions":[],"local_path":"` + tt.in + `"}`
		m, err := Parse([]byte(data), "https://assets.test/")
		if err != nil {
			t.Fatal(err)
		}
		if m.LocalPath != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.in, tt.want, m.LocalPath)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", "nope", ErrInvalidJSON},
		{"array", "[]", ErrInvalidJSON},
		{"no permissions", `{"local_path":"a.html"}`, ErrMissingPermissions},
		{"string permissions", `{"permissions":"x","local_path":"a.html"}`, ErrMissingPermissions},
		{"no local path", `{"permissions":[]}`, ErrMissingLocalPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), DefaultAssetsBaseURL)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir, "")
	for _, path := range []string{"manifest.json", DefaultAssetsBaseURL + "manifest.json"} {
		m, err := l.Load(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if m.LocalPath != "file:///android_asset/www/index.html" {
			t.Errorf("%s: unexpected local path %q", path, m.LocalPath)
		}
	}

	if _, err := l.Load("missing.json"); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestLoader_ShippedManifest(t *testing.T) {
	l := NewLoader(filepath.Join("..", "..", "configs", "assets"), "")
	m, err := l.Load("manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if m.LocalPath != DefaultAssetsBaseURL+"www/index.html" {
		t.Errorf("unexpected local path %q", m.LocalPath)
	}
	if !strings.Contains(m.Permissions, "http://*.example.com/*") {
		t.Errorf("unexpected permissions %s", m.Permissions)
	}
}
