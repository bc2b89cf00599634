// Package manifest reads an application's manifest.json and produces the
// permission declaration sent over the control channel.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tkingovr/originguard/api"
)

// DefaultAssetsBaseURL is where packaged application assets are served from.
const DefaultAssetsBaseURL = "file:///android_asset/"

const (
	permissionsField = "permissions"
	localPathField   = "local_path"
)

var (
	ErrInvalidJSON        = errors.New("manifest is not valid JSON")
	ErrMissingPermissions = errors.New("manifest has no permissions array")
	ErrMissingLocalPath   = errors.New("manifest has no local_path")
)

// Manifest is the subset of manifest.json the runtime cares about.
type Manifest struct {
	// Permissions is the permissions array re-encoded as compact JSON.
	Permissions string
	// LocalPath is the entry page resolved against the assets base URL.
	LocalPath string
}

// Loader resolves manifests stored under an assets directory.
type Loader struct {
	AssetsDir     string
	AssetsBaseURL string
}

// NewLoader creates a loader. An empty baseURL uses DefaultAssetsBaseURL.
func NewLoader(assetsDir, baseURL string) *Loader {
	if baseURL == "" {
		baseURL = DefaultAssetsBaseURL
	}
	return &Loader{AssetsDir: assetsDir, AssetsBaseURL: baseURL}
}

// Load reads the manifest at path. A path given as an assets URL is mapped
// into the assets directory.
func (l *Loader) Load(path string) (*Manifest, error) {
	path = strings.TrimPrefix(path, l.AssetsBaseURL)
	if !filepath.IsAbs(path) && l.AssetsDir != "" {
		path = filepath.Join(l.AssetsDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data, l.AssetsBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse extracts permissions and local_path from manifest JSON.
func Parse(data []byte, assetsBaseURL string) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, ErrInvalidJSON
	}

	perms := doc.Get(permissionsField)
	if !perms.IsArray() {
		return nil, ErrMissingPermissions
	}
	local := doc.Get(localPathField)
	if local.Type != gjson.String {
		return nil, ErrMissingLocalPath
	}

	path := strings.TrimPrefix(local.Str, "./")
	path = strings.TrimPrefix(path, "/")

	return &Manifest{
		Permissions: compact(perms),
		LocalPath:   assetsBaseURL + path,
	}, nil
}

// ControlMessage returns the SetPermissions message for this manifest.
func (m *Manifest) ControlMessage() *api.ControlMessage {
	return &api.ControlMessage{
		Kind: api.KindSetPermissions,
		SetPermissions: &api.SetPermissions{
			BaseURL:     m.LocalPath,
			Permissions: m.Permissions,
		},
	}
}

func compact(arr gjson.Result) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range arr.Array() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strings.TrimSpace(v.Raw))
	}
	b.WriteByte(']')
	return b.String()
}
