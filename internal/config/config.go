package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML layout.
type File struct {
	PackageName   string           `yaml:"package_name,omitempty"`
	AssetsBaseURL string           `yaml:"assets_base_url,omitempty"`
	AssetsDir     string           `yaml:"assets_dir,omitempty"`
	Manifest      string           `yaml:"manifest,omitempty"`
	Cookies       CookieSettings   `yaml:"cookies,omitempty"`
	Audit         AuditSettings    `yaml:"audit,omitempty"`
	Throttle      ThrottleSettings `yaml:"throttle,omitempty"`
	DashboardAddr string           `yaml:"dashboard_addr,omitempty"`
	Log           LogSettings      `yaml:"log,omitempty"`
}

// CookieSettings configure the cookie decision authority.
type CookieSettings struct {
	Accept          *bool  `yaml:"accept,omitempty"`
	AllowFileScheme bool   `yaml:"allow_file_scheme,omitempty"`
	Policy          string `yaml:"policy,omitempty"`
}

// AuditSettings configure the request log.
type AuditSettings struct {
	LogDir string `yaml:"log_dir,omitempty"`
}

// ThrottleSettings configure request throttling. A host sending more than
// MaxPerHost requests within Window has its further requests marked
// throttleable, and at most Concurrency of those run at once.
type ThrottleSettings struct {
	MaxPerHost  int           `yaml:"max_per_host,omitempty"`
	Window      time.Duration `yaml:"window,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
}

// LogSettings configure the process logger.
type LogSettings struct {
	Level      string `yaml:"level,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Path string

	PackageName            string
	AssetsBaseURL          string
	AssetsDir              string
	ManifestPath           string
	AcceptCookies          bool
	AllowFileSchemeCookies bool
	CookiePolicyPath       string
	LogDir                 string
	DashboardAddr          string

	ThrottleMaxPerHost  int
	ThrottleWindow      time.Duration
	ThrottleConcurrency int

	LogLevel      slog.Level
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	file *File
}

// Load reads a YAML config file and produces a runtime Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := LoadBytes(data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path

	// Relative paths in the file are relative to the file.
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.CookiePolicyPath = resolve(dir, cfg.CookiePolicyPath)
	cfg.AssetsDir = resolve(dir, cfg.AssetsDir)
	cfg.ManifestPath = resolve(dir, cfg.ManifestPath)
	cfg.LogFile = resolve(dir, cfg.LogFile)
	return cfg, nil
}

// LoadBytes parses YAML data and produces a runtime Config.
func LoadBytes(data []byte) (*Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return fromFile(&f)
}

func fromFile(f *File) (*Config, error) {
	cfg := &Config{
		PackageName:            f.PackageName,
		AssetsBaseURL:          f.AssetsBaseURL,
		AssetsDir:              expandHome(f.AssetsDir),
		ManifestPath:           expandHome(f.Manifest),
		AcceptCookies:          true,
		AllowFileSchemeCookies: f.Cookies.AllowFileScheme,
		CookiePolicyPath:       expandHome(f.Cookies.Policy),
		DashboardAddr:          f.DashboardAddr,
		ThrottleMaxPerHost:     f.Throttle.MaxPerHost,
		ThrottleWindow:         f.Throttle.Window,
		ThrottleConcurrency:    f.Throttle.Concurrency,
		LogFile:                expandHome(f.Log.File),
		LogMaxSizeMB:           f.Log.MaxSizeMB,
		LogMaxBackups:          f.Log.MaxBackups,
		file:                   f,
	}

	if cfg.PackageName == "" {
		cfg.PackageName = DefaultPackageName
	}
	if cfg.AssetsBaseURL == "" {
		cfg.AssetsBaseURL = DefaultAssetsBaseURL
	}
	if !strings.HasSuffix(cfg.AssetsBaseURL, "/") {
		cfg.AssetsBaseURL += "/"
	}
	if f.Cookies.Accept != nil {
		cfg.AcceptCookies = *f.Cookies.Accept
	}

	// Log directory
	cfg.LogDir = f.Audit.LogDir
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir()
	}
	cfg.LogDir = expandHome(cfg.LogDir)

	if cfg.DashboardAddr == "" {
		cfg.DashboardAddr = DefaultDashboardAddr
	}

	if cfg.ThrottleMaxPerHost < 0 || cfg.ThrottleConcurrency < 0 {
		return nil, fmt.Errorf("throttle limits must not be negative")
	}
	if cfg.ThrottleMaxPerHost > 0 && cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = DefaultThrottleWindow
	}
	if cfg.ThrottleMaxPerHost > 0 && cfg.ThrottleConcurrency == 0 {
		cfg.ThrottleConcurrency = DefaultThrottleConcurrency
	}

	level := f.Log.Level
	if level == "" {
		level = DefaultLogLevel
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", f.Log.Level, err)
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.LogMaxBackups <= 0 {
		cfg.LogMaxBackups = DefaultLogMaxBackups
	}

	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfig returns a config with defaults for when no config file is given.
func DefaultConfig() *Config {
	cfg, _ := fromFile(&File{})
	return cfg
}

// MarshalYAML serializes the config file for display/export.
func (c *Config) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(c.file)
}
