package policy

import (
	"fmt"
	"os"
	"regexp"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/urlpattern"
)

// LoadFile reads and validates a YAML policy file.
func LoadFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates YAML policy data.
func LoadBytes(data []byte) (*PolicyFile, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}
	if err := validate(&pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

func validate(pf *PolicyFile) error {
	if pf.Version != 1 {
		return fmt.Errorf("unsupported policy version: %d (expected 1)", pf.Version)
	}

	// Cookies are accepted unless a rule says otherwise.
	if pf.Settings.DefaultAction == "" {
		pf.Settings.DefaultAction = api.VerdictAllow
	}
	if pf.Settings.DefaultAction != api.VerdictAllow && pf.Settings.DefaultAction != api.VerdictDeny {
		return fmt.Errorf("invalid default_action %q", pf.Settings.DefaultAction)
	}

	validActions := map[string]bool{"allow": true, "deny": true}
	validOps := map[string]bool{"": true, api.OperationGetCookies: true, api.OperationSetCookie: true}

	for i, rule := range pf.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if !validActions[rule.Action] {
			return fmt.Errorf("rule %q: invalid action %q", rule.Name, rule.Action)
		}
		if !validOps[rule.Match.Operation] {
			return fmt.Errorf("rule %q: invalid operation %q", rule.Name, rule.Match.Operation)
		}
		if rule.Match.Host != "" {
			if _, err := glob.Compile(rule.Match.Host, '.'); err != nil {
				return fmt.Errorf("rule %q: host glob invalid: %w", rule.Name, err)
			}
		}
		if rule.Match.URL != "" {
			if _, err := urlpattern.Parse(urlpattern.SchemeAll, rule.Match.URL); err != nil {
				return fmt.Errorf("rule %q: url pattern invalid: %w", rule.Name, err)
			}
		}
		if rule.Match.Cookie != "" {
			if _, err := regexp.Compile(rule.Match.Cookie); err != nil {
				return fmt.Errorf("rule %q: cookie regex invalid: %w", rule.Name, err)
			}
		}
	}

	return nil
}
