package policy

import (
	"github.com/tkingovr/originguard/api"
)

// PolicyFile represents a YAML cookie policy.
type PolicyFile struct {
	Version  int      `yaml:"version" json:"version"`
	Settings Settings `yaml:"settings" json:"settings"`
	Rules    []Rule   `yaml:"rules" json:"rules"`
}

// Settings contains global policy settings.
type Settings struct {
	DefaultAction api.Verdict `yaml:"default_action" json:"default_action"`
}

// Rule represents a single policy rule.
type Rule struct {
	Name    string    `yaml:"name" json:"name"`
	Match   RuleMatch `yaml:"match" json:"match"`
	Action  string    `yaml:"action" json:"action"`
	Message string    `yaml:"message,omitempty" json:"message,omitempty"`
}

// RuleMatch specifies conditions for matching a cookie access.
// Empty fields match anything. URL is a URL match pattern such as
// "*://*.example.com/account/*".
type RuleMatch struct {
	Operation  string `yaml:"operation,omitempty" json:"operation,omitempty"`
	Scheme     string `yaml:"scheme,omitempty" json:"scheme,omitempty"`
	Host       string `yaml:"host,omitempty" json:"host,omitempty"`
	URL        string `yaml:"url,omitempty" json:"url,omitempty"`
	ThirdParty *bool  `yaml:"third_party,omitempty" json:"third_party,omitempty"`
	Cookie     string `yaml:"cookie,omitempty" json:"cookie,omitempty"`
}

// EvalInput is the input to a policy engine evaluation.
type EvalInput struct {
	Operation      string   `json:"operation"`
	URL            string   `json:"url"`
	Scheme         string   `json:"scheme"`
	Host           string   `json:"host"`
	FirstPartyHost string   `json:"first_party_host,omitempty"`
	ThirdParty     bool     `json:"third_party"`
	Cookies        []string `json:"cookies,omitempty"`
	CookieLine     string   `json:"cookie_line,omitempty"`
}

// EvalResult is the output of a policy engine evaluation.
type EvalResult struct {
	Verdict api.Verdict `json:"verdict"`
	Rule    string      `json:"rule,omitempty"`
	Message string      `json:"message,omitempty"`
}
