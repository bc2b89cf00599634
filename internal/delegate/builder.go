package delegate

import (
	"log/slog"

	"github.com/tkingovr/originguard/internal/audit"
	"github.com/tkingovr/originguard/internal/cookiepolicy"
)

// ChainConfig holds the configuration for building the delegate chain.
type ChainConfig struct {
	PackageName string
	Authority   cookiepolicy.Authority
	AuditStore  audit.Store
	Throttle    ThrottleConfig
	Logger      *slog.Logger
}

// BuildChain constructs the per-request delegate chain.
func BuildChain(cfg ChainConfig) *Chain {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authority := cfg.Authority
	if authority == nil {
		authority = cookiepolicy.NewStatic()
	}

	chain := NewChain(logger, NewRuntime(cfg.PackageName, cookiepolicy.NewGate(authority)))

	if cfg.Throttle.Max > 0 {
		chain.Add(NewThrottle(cfg.Throttle))
	}

	// Audit is always last
	if cfg.AuditStore != nil {
		chain.Add(NewAudit(cfg.AuditStore, logger))
	}
	return chain
}
