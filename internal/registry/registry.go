// Package registry holds the process-wide origin access whitelist.
package registry

import (
	"net/url"
	"strings"
	"sync"

	"github.com/tkingovr/originguard/api"
)

// Registry is the write contract of the security-policy registry.
// Entries are only ever appended.
type Registry interface {
	AddOriginAccessWhitelistEntry(entry api.WhitelistEntry)
}

// Memory is an in-memory, append-only Registry. An append is visible to
// readers atomically: they see the list either before or after it.
type Memory struct {
	mu      sync.RWMutex
	entries []api.WhitelistEntry

	subMu   sync.RWMutex
	subs    map[int]chan api.WhitelistEntry
	nextSub int
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan api.WhitelistEntry)}
}

// AddOriginAccessWhitelistEntry appends entry. Duplicates are kept.
func (m *Memory) AddOriginAccessWhitelistEntry(entry api.WhitelistEntry) {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()

	m.notifySubscribers(entry)
}

// Entries returns a snapshot of all entries in insertion order.
func (m *Memory) Entries() []api.WhitelistEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]api.WhitelistEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IsAllowed reports whether a script loaded from source may access target.
func (m *Memory) IsAllowed(source, target *url.URL) bool {
	if source == nil || target == nil {
		return false
	}
	origin := originOf(source)
	scheme := strings.ToLower(target.Scheme)
	host := strings.ToLower(target.Hostname())

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		base, err := url.Parse(e.BaseURL)
		if err != nil || originOf(base) != origin {
			continue
		}
		if !strings.EqualFold(e.Scheme, scheme) {
			continue
		}
		if hostMatches(e, host) {
			return true
		}
	}
	return false
}

// Subscribe returns a channel receiving entries as they are appended.
// The returned function cancels the subscription.
func (m *Memory) Subscribe() (<-chan api.WhitelistEntry, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	ch := make(chan api.WhitelistEntry, 100)
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Memory) notifySubscribers(entry api.WhitelistEntry) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for _, ch := range m.subs {
		select {
		case ch <- entry:
		default:
			// Drop if subscriber is slow
		}
	}
}

func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	if scheme == api.SchemeFile {
		return "file://"
	}
	return scheme + "://" + strings.ToLower(u.Host)
}

func hostMatches(e api.WhitelistEntry, host string) bool {
	want := strings.ToLower(e.Host)
	if want == "" {
		// file entries carry no host; wildcard hosts cover everything
		return e.AllowSubdomains || strings.EqualFold(e.Scheme, api.SchemeFile)
	}
	if host == want {
		return true
	}
	return e.AllowSubdomains && strings.HasSuffix(host, "."+want)
}
