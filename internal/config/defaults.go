package config

import "time"

const (
	DefaultDashboardAddr = "127.0.0.1:8080"
	DefaultPackageName   = "org.originguard.runtime"
	DefaultAssetsBaseURL = "file:///android_asset/"
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 3

	DefaultThrottleWindow      = time.Second
	DefaultThrottleConcurrency = 4
)

// DefaultLogDir returns the default request log directory path.
func DefaultLogDir() string {
	return "~/.originguard/logs"
}
