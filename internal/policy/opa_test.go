package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tkingovr/originguard/api"
)

const testRegoPolicy = `package originguard

default verdict := "allow"
default rule_name := "_default"

verdict := "deny" if {
	input.third_party
	input.operation == "set_cookie"
}
rule_name := "block-third-party-writes" if {
	input.third_party
	input.operation == "set_cookie"
}
message := "third-party cookie writes blocked" if {
	input.third_party
	input.operation == "set_cookie"
}

verdict := "deny" if {
	input.scheme == "file"
}
rule_name := "block-file-cookies" if {
	input.scheme == "file"
}

verdict := "deny" if {
	some c in input.cookies
	startswith(c, "tracker=")
}
`

func TestOPAEngine_DefaultAllow(t *testing.T) {
	engine, err := NewOPAEngineFromSource(testRegoPolicy)
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.Evaluate(context.Background(), &EvalInput{
		Operation: api.OperationGetCookies,
		URL:       "https://example.com/",
		Scheme:    "https",
		Host:      "example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictAllow {
		t.Errorf("expected allow, got %s (rule: %s)", result.Verdict, result.Rule)
	}
}

func TestOPAEngine_DenyThirdPartySet(t *testing.T) {
	engine, err := NewOPAEngineFromSource(testRegoPolicy)
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.Evaluate(context.Background(), &EvalInput{
		Operation:      api.OperationSetCookie,
		URL:            "https://ads.example.net/pixel",
		Scheme:         "https",
		Host:           "ads.example.net",
		FirstPartyHost: "example.com",
		ThirdParty:     true,
		CookieLine:     "id=1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictDeny {
		t.Errorf("expected deny, got %s", result.Verdict)
	}
	if result.Rule != "block-third-party-writes" {
		t.Errorf("expected rule block-third-party-writes, got %s", result.Rule)
	}
}

func TestOPAEngine_DenyCookieName(t *testing.T) {
	engine, err := NewOPAEngineFromSource(testRegoPolicy)
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.Evaluate(context.Background(), &EvalInput{
		Operation: api.OperationGetCookies,
		Scheme:    "https",
		Host:      "example.com",
		Cookies:   []string{"session=abc", "tracker=xyz"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictDeny {
		t.Errorf("expected deny, got %s", result.Verdict)
	}
}

func TestOPAEngine_InvalidRego(t *testing.T) {
	_, err := NewOPAEngineFromSource("this is not valid rego {{{")
	if err == nil {
		t.Fatal("expected error for invalid Rego")
	}
}

func TestOPAEngine_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.rego")
	if err := os.WriteFile(path, []byte(testRegoPolicy), 0o600); err != nil {
		t.Fatal(err)
	}

	engine, err := NewOPAEngine(path)
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.Evaluate(context.Background(), &EvalInput{
		Operation: api.OperationSetCookie,
		Scheme:    "file",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictDeny {
		t.Errorf("expected deny, got %s", result.Verdict)
	}
	if err := engine.Reload(context.Background()); err != nil {
		t.Errorf("reload failed: %v", err)
	}
}
