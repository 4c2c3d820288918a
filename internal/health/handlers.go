package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness flag, e.g. to drain traffic during shutdown.
func SetReady(v bool) { ready.Store(v) }

// Probe checks one dependency within its timeout.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. Every probe reports
// "ok" or its error text.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.Probes)+1)
	healthy := ready.Load()
	if !healthy {
		status["server"] = "shutting down"
	}
	for _, p := range h.Probes {
		if p.Check == nil {
			continue
		}
		status[p.Name] = "ok"
		if err := runProbe(r.Context(), p); err != nil {
			status[p.Name] = err.Error()
			healthy = false
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func runProbe(ctx context.Context, p Probe) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
