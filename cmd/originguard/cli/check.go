package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkingovr/originguard/api"
)

var (
	checkOperation  string
	checkURL        string
	checkFirstParty string
	checkCookie     string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run a cookie access decision",
	Long: `Check whether a cookie read or write would be allowed, without running
the hooks. Useful for testing and debugging cookie policy rules.`,
	Example: `  originguard check -c originguard.yaml --operation set_cookie --url https://ads.example.net/ --first-party https://example.com/ --cookie 'id=1'
  originguard check --operation get_cookies --url file:///data/index.html`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkOperation, "operation", api.OperationGetCookies, "get_cookies or set_cookie")
	checkCmd.Flags().StringVar(&checkURL, "url", "", "request URL (required)")
	checkCmd.Flags().StringVar(&checkFirstParty, "first-party", "", "first-party URL")
	checkCmd.Flags().StringVar(&checkCookie, "cookie", "", "cookie line (Cookie header for reads, Set-Cookie for writes)")
	_ = checkCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkOperation != api.OperationGetCookies && checkOperation != api.OperationSetCookie {
		return fmt.Errorf("unknown operation %q", checkOperation)
	}
	target, err := url.Parse(checkURL)
	if err != nil || target.Scheme == "" {
		return fmt.Errorf("invalid url %q", checkURL)
	}
	req := &api.Request{ID: "check", Method: http.MethodGet, URL: target, StartTime: time.Now()}
	if checkFirstParty != "" {
		fp, err := url.Parse(checkFirstParty)
		if err != nil {
			return fmt.Errorf("invalid first-party url: %w", err)
		}
		req.FirstPartyURL = fp
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}

	var allowed bool
	if checkOperation == api.OperationSetCookie {
		allowed = a.authority.CanSetCookie(req, checkCookie, &api.CookieOptions{ServerTime: time.Now()})
	} else {
		var cookies []*http.Cookie
		if checkCookie != "" {
			cookies, _ = http.ParseCookie(checkCookie)
		}
		allowed = a.authority.CanGetCookies(req, cookies)
	}

	output := struct {
		Verdict string `json:"verdict"`
		Rule    string `json:"rule,omitempty"`
		Message string `json:"message,omitempty"`
	}{
		Verdict: string(api.VerdictDeny),
	}
	if allowed {
		output.Verdict = string(api.VerdictAllow)
	}
	switch {
	case !a.static.AcceptCookie():
		output.Rule = "_accept_cookies"
		output.Message = "cookies are disabled"
	case req.Scheme() == api.SchemeFile && !a.static.AllowFileSchemeCookies():
		output.Rule = "_file_scheme"
		output.Message = "file scheme cookies are disabled"
	case a.policy != nil:
		result, err := a.policy.Check(context.Background(), req, checkOperation, checkCookie)
		if err != nil {
			return fmt.Errorf("evaluation error: %w", err)
		}
		output.Rule = result.Rule
		output.Message = result.Message
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
