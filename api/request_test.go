package api

import (
	"net/http"
	"reflect"
	"testing"
)

func TestHeaderSet_SetIfMissing(t *testing.T) {
	hs := NewHeaderSet()
	if !hs.SetIfMissing("X-Requested-With", "com.example.app") {
		t.Fatal("expected first insert to modify the set")
	}
	if hs.SetIfMissing("x-requested-with", "other") {
		t.Error("expected case-insensitive match to block the insert")
	}
	v, ok := hs.Get("X-REQUESTED-WITH")
	if !ok || v != "com.example.app" {
		t.Errorf("expected com.example.app, got %q (present=%v)", v, ok)
	}
	if hs.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", hs.Len())
	}
}

func TestHeaderSet_SetReplacesInPlace(t *testing.T) {
	hs := NewHeaderSet()
	hs.Set("Accept", "text/html")
	hs.Set("User-Agent", "test")
	hs.Set("accept", "application/json")

	var keys []string
	hs.Each(func(k, v string) { keys = append(keys, k) })
	if len(keys) != 2 || keys[0] != "Accept" || keys[1] != "User-Agent" {
		t.Errorf("unexpected key order %v", keys)
	}
	if v, _ := hs.Get("Accept"); v != "application/json" {
		t.Errorf("expected replaced value, got %q", v)
	}
}

func TestHeaderSet_Remove(t *testing.T) {
	hs := NewHeaderSet()
	hs.Set("Cookie", "a=1")
	hs.Remove("COOKIE")
	if hs.Has("Cookie") {
		t.Error("expected Cookie to be removed")
	}
}

func TestHeaderSetFrom_RoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Add("Accept", "a")
	h.Add("Accept", "b")
	h.Add("Cookie", "a=1")
	h.Add("Cookie", "b=2")

	hs := HeaderSetFrom(h)
	if hs.Len() != 5 {
		t.Errorf("expected one entry per value, got %d", hs.Len())
	}
	if v, _ := hs.Get("accept"); v != "a" {
		t.Errorf("expected first value, got %q", v)
	}
	if got := hs.Values("ACCEPT"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected both values, got %v", got)
	}

	if out := hs.ToHTTP(); !reflect.DeepEqual(out, h) {
		t.Errorf("expected exact round trip, got %v want %v", out, h)
	}
}

func TestHeaderSet_SetCollapsesValues(t *testing.T) {
	h := http.Header{}
	h.Add("Accept", "a")
	h.Add("Accept", "b")
	h.Add("User-Agent", "test")

	hs := HeaderSetFrom(h)
	hs.Set("accept", "c")
	if got := hs.Values("Accept"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("expected single replaced value, got %v", got)
	}

	hs.Remove("user-agent")
	if hs.Has("User-Agent") || hs.Len() != 1 {
		t.Errorf("expected only Accept left, got %d entries", hs.Len())
	}
}

func TestRequest_HostAndScheme(t *testing.T) {
	var nilReq *Request
	if nilReq.Host() != "" || nilReq.Scheme() != "" {
		t.Error("expected empty host and scheme for nil request")
	}
}
