package cookiepolicy

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/policy"
)

// EngineAuthority answers cookie questions by evaluating a policy engine.
// Evaluation errors deny.
type EngineAuthority struct {
	engine policy.Engine
	logger *slog.Logger
}

// NewEngineAuthority adapts engine to the Authority interface.
func NewEngineAuthority(engine policy.Engine, logger *slog.Logger) *EngineAuthority {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineAuthority{engine: engine, logger: logger}
}

func (a *EngineAuthority) CanGetCookies(req *api.Request, cookies []*http.Cookie) bool {
	input := evalInput(api.OperationGetCookies, req)
	for _, c := range cookies {
		input.Cookies = append(input.Cookies, c.Name+"="+c.Value)
	}
	return a.decide(input)
}

func (a *EngineAuthority) CanSetCookie(req *api.Request, cookieLine string, _ *api.CookieOptions) bool {
	input := evalInput(api.OperationSetCookie, req)
	input.CookieLine = cookieLine
	return a.decide(input)
}

// Check evaluates a cookie question outside a live request and returns the
// full result. For reads, cookieLine is a Cookie header value.
func (a *EngineAuthority) Check(ctx context.Context, req *api.Request, op, cookieLine string) (*policy.EvalResult, error) {
	input := evalInput(op, req)
	if op == api.OperationSetCookie {
		input.CookieLine = cookieLine
	} else if cookieLine != "" {
		cookies, _ := http.ParseCookie(cookieLine)
		for _, c := range cookies {
			input.Cookies = append(input.Cookies, c.Name+"="+c.Value)
		}
	}
	return a.engine.Evaluate(ctx, input)
}

func (a *EngineAuthority) decide(input *policy.EvalInput) bool {
	result, err := a.engine.Evaluate(context.Background(), input)
	if err != nil {
		a.logger.Warn("cookie policy evaluation failed", "operation", input.Operation, "url", input.URL, "error", err)
		return false
	}
	a.logger.Debug("cookie policy decision",
		"operation", input.Operation,
		"host", input.Host,
		"verdict", result.Verdict,
		"rule", result.Rule,
	)
	return result.Verdict == api.VerdictAllow
}

func evalInput(op string, req *api.Request) *policy.EvalInput {
	input := &policy.EvalInput{
		Operation: op,
		Scheme:    req.Scheme(),
		Host:      req.Host(),
	}
	if req != nil && req.URL != nil {
		input.URL = req.URL.String()
	}
	if req != nil && req.FirstPartyURL != nil {
		input.FirstPartyHost = strings.ToLower(req.FirstPartyURL.Hostname())
	}
	input.ThirdParty = IsThirdParty(input.Host, input.FirstPartyHost)
	return input
}

// IsThirdParty reports whether host falls outside firstParty's domain.
// Requests with no host or no known first party are never third party.
func IsThirdParty(host, firstParty string) bool {
	if firstParty == "" || host == "" || host == firstParty {
		return false
	}
	return !strings.HasSuffix(host, "."+firstParty) && !strings.HasSuffix(firstParty, "."+host)
}
