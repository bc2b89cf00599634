package policy

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/urlpattern"
)

// YAMLEngine implements first-match-wins policy evaluation using YAML rules.
type YAMLEngine struct {
	mu   sync.RWMutex
	file *PolicyFile
	path string

	// compiled matchers, indexed like file.Rules
	matchers []ruleMatcher
}

type ruleMatcher struct {
	host   glob.Glob
	url    *urlpattern.Pattern
	cookie *regexp.Regexp
}

// NewYAMLEngine creates a new YAML policy engine from a file path.
func NewYAMLEngine(path string) (*YAMLEngine, error) {
	e := &YAMLEngine{path: path}
	if err := e.Reload(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// NewYAMLEngineFromPolicy creates a new YAML policy engine from an already-loaded policy.
func NewYAMLEngineFromPolicy(pf *PolicyFile) (*YAMLEngine, error) {
	if err := validate(pf); err != nil {
		return nil, err
	}
	e := &YAMLEngine{}
	if err := e.install(pf); err != nil {
		return nil, err
	}
	return e, nil
}

// Evaluate checks the input against rules in order, returning the first match.
func (e *YAMLEngine) Evaluate(_ context.Context, input *EvalInput) (*EvalResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i := range e.file.Rules {
		rule := &e.file.Rules[i]
		if e.matches(rule, &e.matchers[i], input) {
			return &EvalResult{
				Verdict: api.Verdict(rule.Action),
				Rule:    rule.Name,
				Message: rule.Message,
			}, nil
		}
	}

	return &EvalResult{
		Verdict: e.file.Settings.DefaultAction,
		Rule:    "_default",
		Message: "no matching rule; default action applied",
	}, nil
}

// Reload re-reads the policy file from disk.
func (e *YAMLEngine) Reload(_ context.Context) error {
	if e.path == "" {
		return nil
	}
	pf, err := LoadFile(e.path)
	if err != nil {
		return err
	}
	return e.install(pf)
}

// Policy returns the current loaded policy.
func (e *YAMLEngine) Policy() *PolicyFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.file
}

func (e *YAMLEngine) install(pf *PolicyFile) error {
	matchers := make([]ruleMatcher, len(pf.Rules))
	for i, rule := range pf.Rules {
		if rule.Match.Host != "" {
			g, err := glob.Compile(strings.ToLower(rule.Match.Host), '.')
			if err != nil {
				return fmt.Errorf("rule %q host: %w", rule.Name, err)
			}
			matchers[i].host = g
		}
		if rule.Match.URL != "" {
			p, err := urlpattern.Parse(urlpattern.SchemeAll, rule.Match.URL)
			if err != nil {
				return fmt.Errorf("rule %q url: %w", rule.Name, err)
			}
			matchers[i].url = p
		}
		if rule.Match.Cookie != "" {
			re, err := regexp.Compile(rule.Match.Cookie)
			if err != nil {
				return fmt.Errorf("rule %q cookie: %w", rule.Name, err)
			}
			matchers[i].cookie = re
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.file = pf
	e.matchers = matchers
	return nil
}

func (e *YAMLEngine) matches(rule *Rule, c *ruleMatcher, input *EvalInput) bool {
	m := rule.Match

	if m.Operation != "" && m.Operation != input.Operation {
		return false
	}
	if m.Scheme != "" && !strings.EqualFold(m.Scheme, input.Scheme) {
		return false
	}
	if m.ThirdParty != nil && *m.ThirdParty != input.ThirdParty {
		return false
	}
	if c.host != nil && !c.host.Match(strings.ToLower(input.Host)) {
		return false
	}
	if c.url != nil && !matchURL(c.url, input.URL) {
		return false
	}
	if c.cookie != nil && !matchCookie(c.cookie, input) {
		return false
	}
	return true
}

func matchURL(p *urlpattern.Pattern, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	return p.MatchesURL(u)
}

func matchCookie(re *regexp.Regexp, input *EvalInput) bool {
	if input.CookieLine != "" && re.MatchString(input.CookieLine) {
		return true
	}
	for _, c := range input.Cookies {
		if re.MatchString(c) {
			return true
		}
	}
	return false
}
