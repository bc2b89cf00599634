package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	stdioproxy "github.com/tkingovr/originguard/internal/proxy/stdio"
)

var (
	serveDashAddr string
	serveTarget   string
	serveListen   string
	serveNoDash   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [flags] [-- <command> [args...]]",
	Short: "Run the control channel, request hooks and status API",
	Long: `Run the control channel together with the status API.

Control messages are read as JSON-RPC lines from stdin, or from the stdout of
the host application given after --. When --target is set, an HTTP proxy runs
every request to that origin through the lifecycle hooks.`,
	Example: `  originguard serve -c originguard.yaml
  originguard serve -c originguard.yaml --target http://localhost:4000 -- ./host-app
  originguard serve --no-dashboard < control.jsonl`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveDashAddr, "listen-dashboard", "l", "", "status API listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoDash, "no-dashboard", false, "do not start the status API")
	serveCmd.Flags().StringVar(&serveTarget, "target", "", "origin to proxy through the request hooks")
	serveCmd.Flags().StringVar(&serveListen, "listen", "127.0.0.1:3000", "proxy listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.installManifest(cfg); err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	a.observer.MarkInitialized()

	ctx, cancel := signalContext("shutting down")
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if !serveNoDash {
		addr := cfg.DashboardAddr
		if serveDashAddr != "" {
			addr = serveDashAddr
		}
		dash := a.dashboard(addr)
		g.Go(func() error {
			if err := dash.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status API: %w", err)
			}
			return nil
		})
	}

	if serveTarget != "" {
		proxy, err := a.proxy(cfg, serveTarget)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := proxy.ListenAndServe(ctx, serveListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http proxy: %w", err)
			}
			return nil
		})
	}

	bridge := stdioproxy.NewBridge(a.router, logger)
	bridgeErr := make(chan error, 1)
	go func() {
		if len(args) > 0 {
			logger.Info("starting host application", slog.String("command", args[0]))
			bridgeErr <- bridge.Run(ctx, args[0], args[1:])
			return
		}
		bridgeErr <- bridge.Serve(ctx, os.Stdin, os.Stdout)
	}()

	logger.Info("starting serve mode",
		slog.String("package", cfg.PackageName),
		slog.Int("whitelist_entries", a.registry.Len()),
	)

	select {
	case err := <-bridgeErr:
		// The host application exiting ends the session. A closed stdin
		// leaves the proxy and status API running until a signal arrives.
		if err != nil || len(args) > 0 {
			cancel()
			if werr := g.Wait(); err == nil {
				err = werr
			}
			return ignoreCanceled(err)
		}
		logger.Info("control channel closed")
	case <-ctx.Done():
	}
	return ignoreCanceled(g.Wait())
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
