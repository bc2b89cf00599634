// Package whitelist turns permission declarations into origin access
// whitelist entries.
package whitelist

import (
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/registry"
	"github.com/tkingovr/originguard/internal/urlpattern"
)

type schemeRule struct {
	name    string
	matches func(p *urlpattern.Pattern) bool
}

func schemeMatcher(name string) schemeRule {
	return schemeRule{
		name:    name,
		matches: func(p *urlpattern.Pattern) bool { return p.MatchesScheme(name) },
	}
}

// schemeTable is evaluated in order for every permission pattern.
var schemeTable = [...]schemeRule{
	schemeMatcher(api.SchemeHTTP),
	schemeMatcher(api.SchemeHTTPS),
	schemeMatcher(api.SchemeFile),
	schemeMatcher(api.SchemeChromeUI),
}

// Schemes returns the scheme names a pattern can be granted for, in table order.
func Schemes() []string {
	out := make([]string, len(schemeTable))
	for i, r := range schemeTable {
		out[i] = r.name
	}
	return out
}

// Compile parses permissionsJSON, a JSON array of URL match patterns, into
// whitelist entries for baseURL. A payload that is not a JSON array yields
// nothing; elements that are not strings or not valid patterns are skipped.
func Compile(baseURL, permissionsJSON string) []api.WhitelistEntry {
	entries, _ := compile(baseURL, permissionsJSON, nil)
	return entries
}

func compile(baseURL, permissionsJSON string, logger *slog.Logger) ([]api.WhitelistEntry, int) {
	if baseURL == "" || permissionsJSON == "" || !gjson.Valid(permissionsJSON) {
		return nil, 0
	}
	list := gjson.Parse(permissionsJSON)
	if !list.IsArray() {
		return nil, 0
	}

	var entries []api.WhitelistEntry
	skipped := 0
	list.ForEach(func(_, value gjson.Result) bool {
		if value.Type != gjson.String {
			skipped++
			return true
		}
		pattern, err := urlpattern.Parse(urlpattern.SchemeAll, value.Str)
		if err != nil {
			if logger != nil {
				logger.Debug("skipping permission", "permission", value.Str, "error", err)
			}
			skipped++
			return true
		}
		for _, rule := range schemeTable {
			if !rule.matches(pattern) {
				continue
			}
			entries = append(entries, api.WhitelistEntry{
				BaseURL:         baseURL,
				Scheme:          rule.name,
				Host:            pattern.Host(),
				AllowSubdomains: pattern.MatchSubdomains(),
			})
		}
		return true
	})
	return entries, skipped
}

// Compiler installs compiled entries into a registry.
type Compiler struct {
	registry registry.Registry
	logger   *slog.Logger
}

// NewCompiler creates a compiler that appends to reg.
func NewCompiler(reg registry.Registry, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{registry: reg, logger: logger}
}

// Install compiles the declaration and appends every resulting entry, in
// permission order then scheme-table order. It returns the number installed.
func (c *Compiler) Install(baseURL, permissionsJSON string) int {
	entries, skipped := compile(baseURL, permissionsJSON, c.logger)
	for _, e := range entries {
		c.registry.AddOriginAccessWhitelistEntry(e)
	}
	c.logger.Debug("permissions installed",
		"base_url", baseURL,
		"entries", len(entries),
		"skipped", skipped,
	)
	return len(entries)
}
