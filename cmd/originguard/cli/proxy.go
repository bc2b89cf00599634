package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	proxyTarget  string
	proxyListen  string
	proxyNoAudit bool
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start an HTTP proxy that runs requests through the lifecycle hooks",
	Long: `Start an HTTP reverse proxy. Every request is passed through the
lifecycle hooks: the application identity header is injected, cookies are
gated by the cookie policy, and completed requests are logged.`,
	Example: `  originguard proxy -c originguard.yaml --target http://localhost:4000 --listen :3000`,
	RunE:    runProxy,
}

func init() {
	proxyCmd.Flags().StringVar(&proxyTarget, "target", "", "target origin URL (required)")
	proxyCmd.Flags().StringVar(&proxyListen, "listen", "127.0.0.1:3000", "listen address")
	proxyCmd.Flags().BoolVar(&proxyNoAudit, "no-request-log", false, "do not write the request log")
	_ = proxyCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(proxyCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, !proxyNoAudit)
	if err != nil {
		return err
	}
	defer a.Close()

	proxy, err := a.proxy(cfg, proxyTarget)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext("shutting down HTTP proxy")
	defer cancel()

	if err := proxy.ListenAndServe(ctx, proxyListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
