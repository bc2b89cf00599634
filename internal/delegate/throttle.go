package delegate

import (
	"sync"
	"time"

	"github.com/tkingovr/originguard/api"
)

// ThrottleConfig marks requests as throttleable once a host exceeds Max
// requests within Window. A zero Max disables throttling.
type ThrottleConfig struct {
	Max    int
	Window time.Duration
}

// slidingWindow tracks request timestamps for one host.
type slidingWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// Throttle answers OnCanThrottleRequest from a per-host sliding window.
// Every other hook is a no-op.
type Throttle struct {
	Base
	config ThrottleConfig
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*slidingWindow
}

// NewThrottle creates a throttle delegate.
func NewThrottle(config ThrottleConfig) *Throttle {
	return &Throttle{
		config:  config,
		now:     time.Now,
		windows: make(map[string]*slidingWindow),
	}
}

func (t *Throttle) OnCanThrottleRequest(req *api.Request) bool {
	if t.config.Max <= 0 || t.config.Window <= 0 {
		return false
	}
	return !t.allow(req.Host(), t.now())
}

// allow records a request to host and reports whether it is within the limit.
// Requests over the limit are not recorded.
func (t *Throttle) allow(host string, now time.Time) bool {
	t.mu.Lock()
	w, ok := t.windows[host]
	if !ok {
		w = &slidingWindow{}
		t.windows[host] = w
	}
	t.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-t.config.Window)
	valid := 0
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			w.timestamps[valid] = ts
			valid++
		}
	}
	w.timestamps = w.timestamps[:valid]

	if len(w.timestamps) >= t.config.Max {
		return false
	}
	w.timestamps = append(w.timestamps, now)
	return true
}
