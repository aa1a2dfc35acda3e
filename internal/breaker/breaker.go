// Package breaker implements a per-service circuit breaker shared by the
// gate pipeline's daemon fast-path client, the memory gateway client, and
// any other RPC edge that must fail open rather than hang the host.
//
// The state machine and weighting scheme are lifted from vc's own AI
// retry circuit breaker and generalized from a single client into a
// named-service registry.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// ErrOpen is returned by Allow when the breaker is open and the recovery
// timeout has not yet elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// Config controls the thresholds of one breaker.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // consecutive half-open successes before closing
	RecoveryTimeout  time.Duration // how long to stay open before probing
}

// DefaultConfig matches the thresholds named in the data model: failure=3,
// recovery=30s, success=1.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		RecoveryTimeout:  30 * time.Second,
	}
}

// Breaker is a single CLOSED/OPEN/HALF_OPEN circuit breaker.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state              types.CircuitState
	consecutiveFails   int
	consecutiveSuccess int
	openedAt           time.Time
	lastStateChange    time.Time
}

// New constructs a Breaker with cfg.
func New(cfg Config) *Breaker {
	now := time.Now()
	return &Breaker{
		cfg:             cfg,
		state:           types.CircuitClosed,
		lastStateChange: now,
	}
}

// Allow reports whether a call should be attempted. It returns ErrOpen
// when the breaker is open and the recovery timeout has not elapsed; it
// transitions to half-open (and returns nil, allowing one probe call)
// once the timeout has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case types.CircuitClosed:
		return nil
	case types.CircuitOpen:
		if time.Since(b.openedAt) > b.cfg.RecoveryTimeout {
			b.transitionTo(types.CircuitHalfOpen)
			return nil
		}
		return ErrOpen
	case types.CircuitHalfOpen:
		return nil
	default:
		return nil
	}
}

// RecordSuccess registers a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case types.CircuitClosed:
		b.consecutiveFails = 0
	case types.CircuitHalfOpen:
		b.consecutiveSuccess++
		if b.consecutiveSuccess >= b.cfg.SuccessThreshold {
			b.transitionTo(types.CircuitClosed)
		}
	}
}

// RecordFailure registers a plain failure.
func (b *Breaker) RecordFailure() {
	b.RecordWeightedFailure(1)
}

// RecordWeightedFailure registers a failure that counts as weight toward
// the failure threshold (e.g. quota-exhaustion failures may be weighted
// 3x a plain transient failure upstream of this package).
func (b *Breaker) RecordWeightedFailure(weight int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case types.CircuitClosed:
		b.consecutiveFails += weight
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.transitionTo(types.CircuitOpen)
		}
	case types.CircuitHalfOpen:
		// Any failure while probing reopens immediately.
		b.transitionTo(types.CircuitOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() types.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Metrics returns the current state plus consecutive failure/success
// counts, for a status/doctor command.
func (b *Breaker) Metrics() (state types.CircuitState, failures, successes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.consecutiveFails, b.consecutiveSuccess
}

// transitionTo must be called with mu held.
func (b *Breaker) transitionTo(next types.CircuitState) {
	b.state = next
	b.lastStateChange = time.Now()
	switch next {
	case types.CircuitOpen:
		b.openedAt = time.Now()
		b.consecutiveSuccess = 0
	case types.CircuitHalfOpen:
		b.consecutiveSuccess = 0
	case types.CircuitClosed:
		b.consecutiveFails = 0
		b.consecutiveSuccess = 0
	}
}

// Registry holds one Breaker per named service (e.g. "daemon-fast-path",
// "memory-gateway"), created lazily on first use.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[string]*Breaker
}

// NewRegistry constructs an empty Registry using cfg for every breaker it
// creates.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns the Breaker for name, creating one if it doesn't exist yet.
func (r *Registry) For(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = New(r.cfg)
		r.breakers[name] = b
	}
	return b
}

// Snapshot returns the current state of every breaker created so far, for
// the health dashboard's circuit breaker section.
func (r *Registry) Snapshot() map[string]types.CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]types.CircuitState, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
