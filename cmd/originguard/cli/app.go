package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/audit"
	"github.com/tkingovr/originguard/internal/channel"
	"github.com/tkingovr/originguard/internal/config"
	"github.com/tkingovr/originguard/internal/cookiepolicy"
	"github.com/tkingovr/originguard/internal/dashboard"
	"github.com/tkingovr/originguard/internal/delegate"
	"github.com/tkingovr/originguard/internal/manifest"
	"github.com/tkingovr/originguard/internal/policy"
	httpproxy "github.com/tkingovr/originguard/internal/proxy/http"
	"github.com/tkingovr/originguard/internal/registry"
	"github.com/tkingovr/originguard/internal/whitelist"
)

// app is the process-wide state shared by the request hooks, the
// control channel and the status API.
type app struct {
	registry  *registry.Memory
	online    *channel.OnlineState
	observer  *channel.Observer
	router    *channel.Router
	static    *cookiepolicy.Static
	policy    *cookiepolicy.EngineAuthority
	authority cookiepolicy.Authority
	store     *audit.JSONLStore
	chain     *delegate.Chain
}

// loadEngine picks the policy engine by file extension.
func loadEngine(path string) (policy.Engine, error) {
	if strings.EqualFold(filepath.Ext(path), ".rego") {
		return policy.NewOPAEngine(path)
	}
	return policy.NewYAMLEngine(path)
}

func newApp(c *config.Config, withAudit bool) (*app, error) {
	rt := &app{
		registry: registry.NewMemory(),
		online:   channel.NewOnlineState(),
		static:   cookiepolicy.NewStatic(),
	}
	rt.static.SetAcceptCookie(c.AcceptCookies)
	rt.static.SetAllowFileSchemeCookies(c.AllowFileSchemeCookies)
	rt.authority = rt.static

	if c.CookiePolicyPath != "" {
		engine, err := loadEngine(c.CookiePolicyPath)
		if err != nil {
			return nil, fmt.Errorf("creating cookie policy engine: %w", err)
		}
		rt.policy = cookiepolicy.NewEngineAuthority(engine, logger)
		rt.authority = cookiepolicy.All(rt.static, rt.policy)
	}

	compiler := whitelist.NewCompiler(rt.registry, logger)
	rt.observer = channel.NewObserver(rt.online, compiler, logger)

	// Every control channel dispatches through the router; kinds nothing
	// recognizes fall through to the logger.
	rt.router = channel.NewRouter(rt.observer)
	rt.router.Add(channel.HandlerFunc(func(msg *api.ControlMessage) bool {
		if msg != nil {
			logger.Debug("unhandled control message", "kind", msg.Kind)
		}
		return false
	}))

	chainCfg := delegate.ChainConfig{
		PackageName: c.PackageName,
		Authority:   rt.authority,
		Throttle: delegate.ThrottleConfig{
			Max:    c.ThrottleMaxPerHost,
			Window: c.ThrottleWindow,
		},
		Logger: logger,
	}
	if withAudit {
		store, err := audit.NewJSONLStore(c.LogDir)
		if err != nil {
			return nil, fmt.Errorf("creating request log: %w", err)
		}
		rt.store = store
		chainCfg.AuditStore = store
	}
	rt.chain = delegate.BuildChain(chainCfg)
	return rt, nil
}

// installManifest applies the configured manifest's permissions, if any.
func (rt *app) installManifest(c *config.Config) error {
	if c.ManifestPath == "" {
		return nil
	}
	m, err := manifest.NewLoader(c.AssetsDir, c.AssetsBaseURL).Load(c.ManifestPath)
	if err != nil {
		return err
	}
	if !rt.router.OnControlMessageReceived(m.ControlMessage()) {
		return fmt.Errorf("manifest %s: permissions not handled", c.ManifestPath)
	}
	logger.Info("installed manifest permissions",
		"base_url", m.LocalPath,
		"entries", rt.registry.Len(),
	)
	return nil
}

// proxy creates an HTTP proxy to target running requests through the hooks.
func (rt *app) proxy(c *config.Config, target string) (*httpproxy.Proxy, error) {
	p, err := httpproxy.NewProxy(target, rt.chain, logger)
	if err != nil {
		return nil, err
	}
	p.SetThrottleLimit(c.ThrottleConcurrency)
	return p, nil
}

func (rt *app) dashboard(addr string) *dashboard.Server {
	opts := dashboard.Options{
		Addr:      addr,
		Registry:  rt.registry,
		Online:    rt.online,
		Observer:  rt.observer,
		Handler:   rt.router,
		Authority: rt.authority,
		Logger:    logger,
	}
	if rt.store != nil {
		opts.AuditStore = rt.store
	}
	return dashboard.NewServer(opts)
}

func (rt *app) Close() error {
	if rt.store != nil {
		return rt.store.Close()
	}
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(msg string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info(msg)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
