// Package health implements liveness and readiness probes in the style of
// Kubernetes probe configuration. Registered checks run on a background
// ticker and must fail several times in a row before a probe flips to
// unhealthy, so a single slow database ping does not knock the service out
// of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes a single component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// probe is one registered check plus its sampled state. The tick loop is the
// only writer; HTTP handlers read state under mu.
type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	oks     int
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	return &probe{
		name:    name,
		timeout: timeout,
		fn:      fn,
		// A probe starts out healthy so a service is not marked down
		// before the first sample completes.
		healthy: true,
	}
}

// sample runs the check once and applies the consecutive-failure thresholds.
func (p *probe) sample(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = err
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= defaultFailureThreshold {
			p.healthy = false
		}
		return
	}

	p.fails = 0
	p.oks++
	if p.oks >= defaultSuccessThreshold {
		p.healthy = true
	}
}

// state returns the probe's current health and last observed error.
func (p *probe) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

// Health tracks a service's liveness and readiness probes.
//
// Readiness combines two signals: the readiness probes themselves and an
// explicit ready flag. The flag starts false and is set by the service once
// startup finishes, then cleared again at the beginning of graceful shutdown
// so load balancers drain traffic before the listener closes.
type Health struct {
	mu        sync.Mutex
	ready     bool
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe that decides whether the process itself
// is functioning (goroutine leaks, GC stalls). Register before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, fn))
}

// AddReadinessCheck registers a probe that decides whether the service can
// serve traffic (database reachable, caches warm). Register before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, fn))
}

// Start launches one goroutine per registered probe, each sampling at the
// given interval. Probes sample once immediately so endpoints have data
// before the first tick.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append(append([]*probe{}, h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go p.loop(ctx, interval)
	}
}

func (p *probe) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(ctx)
		}
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the explicit readiness flag.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports whether the service should receive traffic: the ready flag
// is set and every readiness probe is healthy.
func (h *Health) IsReady() bool {
	h.mu.Lock()
	ready := h.ready
	probes := h.readiness
	h.mu.Unlock()

	if !ready {
		return false
	}
	for _, p := range probes {
		if ok, _ := p.state(); !ok {
			return false
		}
	}
	return true
}

type probeStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe: 200 while every liveness check is
// healthy, 503 with per-check failure details otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	probes := append([]*probe{}, h.liveness...)
	h.mu.Unlock()

	writeProbeStatus(w, failingProbes(probes))
}

// ReadyEndpoint serves the /readyz probe. It fails while the explicit ready
// flag is unset, even if every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	ready := h.ready
	probes := append([]*probe{}, h.readiness...)
	h.mu.Unlock()

	failures := failingProbes(probes)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeProbeStatus(w, failures)
}

func failingProbes(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		healthy, err := p.state()
		if healthy {
			continue
		}
		if err != nil {
			failures[p.name] = err.Error()
		} else {
			failures[p.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeProbeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeStatus{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = probeStatus{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
