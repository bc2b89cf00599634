package policy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tkingovr/originguard/api"
)

func TestShippedPolicies(t *testing.T) {
	yamlEngine, err := NewYAMLEngine(filepath.Join("..", "..", "configs", "cookies.yaml"))
	if err != nil {
		t.Fatalf("cookies.yaml: %v", err)
	}
	opaEngine, err := NewOPAEngine(filepath.Join("..", "..", "configs", "cookies.rego"))
	if err != nil {
		t.Fatalf("cookies.rego: %v", err)
	}

	write := &EvalInput{
		Operation:      api.OperationSetCookie,
		Scheme:         "https",
		Host:           "tracker.test",
		FirstPartyHost: "example.com",
		ThirdParty:     true,
		CookieLine:     "id=1",
	}
	read := &EvalInput{
		Operation: api.OperationGetCookies,
		Scheme:    "https",
		Host:      "example.com",
		Cookies:   []string{"sid=1"},
	}

	for name, engine := range map[string]Engine{"yaml": yamlEngine, "rego": opaEngine} {
		t.Run(name, func(t *testing.T) {
			result, err := engine.Evaluate(context.Background(), write)
			if err != nil {
				t.Fatal(err)
			}
			if result.Verdict != api.VerdictDeny || result.Rule != "block-third-party-writes" {
				t.Errorf("expected third-party write denied, got %+v", result)
			}

			result, err = engine.Evaluate(context.Background(), read)
			if err != nil {
				t.Fatal(err)
			}
			if result.Verdict != api.VerdictAllow {
				t.Errorf("expected first-party read allowed, got %+v", result)
			}
		})
	}
}

func TestShippedYAMLPolicy_BeaconWrites(t *testing.T) {
	engine, err := NewYAMLEngine(filepath.Join("..", "..", "configs", "cookies.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	input := &EvalInput{
		Operation:  api.OperationSetCookie,
		URL:        "https://example.com/beacon/v1?e=load",
		Scheme:     "https",
		Host:       "example.com",
		CookieLine: "sid=1",
	}
	result, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictDeny || result.Rule != "block-beacon-writes" {
		t.Errorf("expected beacon write denied, got %+v", result)
	}

	input.Operation = api.OperationGetCookies
	input.Cookies = []string{"sid=1"}
	result, err = engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictAllow {
		t.Errorf("expected beacon read allowed, got %+v", result)
	}
}
