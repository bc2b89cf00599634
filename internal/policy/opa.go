package policy

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/open-policy-agent/opa/v1/topdown"

	"github.com/tkingovr/originguard/api"
)

// regoPackage is the package a cookie policy must declare.
const regoPackage = "data.originguard"

// OPAEngine evaluates cookie decisions with an embedded Rego policy.
//
// The policy defines, in package originguard:
//
//	verdict: "allow" | "deny"
//	rule_name: string (optional)
//	message: string (optional)
//
// The input document is EvalInput in its JSON form: operation, url, scheme,
// host, first_party_host, third_party, cookies ("name=value" strings) and
// cookie_line.
//
// Anything other than an explicit "allow" verdict denies.
type OPAEngine struct {
	path string

	mu    sync.RWMutex
	query rego.PreparedEvalQuery
}

// NewOPAEngine loads and compiles the .rego file at path.
func NewOPAEngine(path string) (*OPAEngine, error) {
	e := &OPAEngine{path: path}
	if err := e.Reload(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// NewOPAEngineFromSource compiles Rego source held in memory.
func NewOPAEngineFromSource(source string) (*OPAEngine, error) {
	e := &OPAEngine{}
	if err := e.compile(context.Background(), source); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *OPAEngine) Evaluate(ctx context.Context, input *EvalInput) (*EvalResult, error) {
	e.mu.RLock()
	query := e.query
	e.mu.RUnlock()

	rs, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		// Runtime errors inside the policy deny; anything else is the caller's problem.
		if topdown.IsError(err) {
			return denied("_opa_error", "policy evaluation error: "+err.Error()), nil
		}
		return nil, fmt.Errorf("evaluating cookie policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return denied("_opa_default", "policy returned no result"), nil
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return denied("_opa_parse_error", "unexpected policy result type"), nil
	}
	return decode(doc), nil
}

// Reload recompiles the policy file. Engines built from source have nothing
// to reload.
func (e *OPAEngine) Reload(ctx context.Context) error {
	if e.path == "" {
		return nil
	}
	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("reading cookie policy %s: %w", e.path, err)
	}
	return e.compile(ctx, string(data))
}

func (e *OPAEngine) compile(ctx context.Context, source string) error {
	name := e.path
	if name == "" {
		name = "cookies.rego"
	}
	if _, err := ast.ParseModuleWithOpts(name, source, ast.ParserOptions{RegoVersion: ast.RegoV1}); err != nil {
		return fmt.Errorf("parsing cookie policy: %w", err)
	}

	query, err := rego.New(
		rego.Query(regoPackage),
		rego.Module(name, source),
		rego.Store(inmem.New()),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("compiling cookie policy: %w", err)
	}

	e.mu.Lock()
	e.query = query
	e.mu.Unlock()
	return nil
}

func denied(rule, msg string) *EvalResult {
	return &EvalResult{Verdict: api.VerdictDeny, Rule: rule, Message: msg}
}

func decode(doc map[string]any) *EvalResult {
	result := denied("", "")
	if v, _ := doc["verdict"].(string); v == string(api.VerdictAllow) {
		result.Verdict = api.VerdictAllow
	}
	result.Rule, _ = doc["rule_name"].(string)
	result.Message, _ = doc["message"].(string)
	return result
}
