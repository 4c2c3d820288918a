package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen admits a single probe to decide between Closed and Open.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// gauge is the value exported by BreakerState.
func (s State) gauge() float64 {
	switch s {
	case Closed, Open, HalfOpen:
		return float64(s)
	default:
		return -1
	}
}

// minWindow is the smallest outcome window a breaker keeps.
const minWindow = 8

// Breaker trips when the share of failures among the most recent outcomes
// reaches a ratio. Outcomes are kept in a fixed ring, so old results age out
// as new ones arrive.
type Breaker struct {
	mu           sync.Mutex
	state        State
	window       []bool
	next         int
	filled       int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	probing      bool
	target       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBreaker builds a closed breaker that opens once at least minRequests
// outcomes are recorded and failureRatio of them failed. An open breaker
// stays open for openFor.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	failureRatio = min(failureRatio, 1)
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		window:       make([]bool, max(minRequests*2, minWindow)),
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithTarget names the guarded dependency in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	BreakerState.WithLabelValues(b.targetLabel()).Set(b.state.gauge())
	return b
}

// WithLogger sets the fallback logger for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// WithClock replaces the time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may proceed. Every admitted request must
// be followed by Report.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.window[b.next] = !success
	b.next = (b.next + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
	if b.filled < b.minRequests {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) >= b.failureRatio {
		b.transitionLocked(ctx, Open)
	}
}

func (b *Breaker) transitionLocked(ctx context.Context, to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == Open {
		b.openedAt = b.now()
	}
	clear(b.window)
	b.next, b.filled = 0, 0

	label := b.targetLabel()
	BreakerState.WithLabelValues(label).Set(to.gauge())
	BreakerTransitions.WithLabelValues(label, from.String(), to.String()).Inc()

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &b.logger
	}
	evt := logger.Info().Str("target", label).Str("from_state", from.String()).Str("to_state", to.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "backend"
	}
	return b.target
}

// Backoff is base doubled per attempt, spread by up to ±jitterPct of itself.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << max(attempt-1, 0)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
