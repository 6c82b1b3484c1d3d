package storage

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the circuit breaker is rejecting store calls.
var ErrCircuitOpen = errors.New("store circuit breaker open")

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota

	// StateOpen rejects calls until the cool-down has passed.
	StateOpen

	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int

	// Timeout is the cool-down spent open before letting trial calls through.
	Timeout time.Duration

	// HalfOpenLimit is both the number of concurrent trial calls and the number
	// of consecutive trial successes that close the circuit.
	HalfOpenLimit int
}

// CircuitBreaker stops calling a store that keeps failing, so the daily
// quote degrades to its uncached fallback without waiting on every request.
//
// State transitions:
//   - Closed → Open: after MaxFailures consecutive failures
//   - Open → HalfOpen: on the first call after Timeout
//   - HalfOpen → Closed: after HalfOpenLimit consecutive successes
//   - HalfOpen → Open: on any failure
//
// Allow hands out the generation of the current state. Results reported
// with an older generation belong to a state the breaker has already left
// and are dropped, so a slow call admitted while closed cannot close the
// circuit in the middle of a half-open trial.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	generation  uint64
	failures    int
	successes   int
	inFlight    int
	lastFailure time.Time
	cfg         CircuitBreakerConfig

	onStateChange func(from, to State)

	now func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. Non-positive limits
// are raised to 1.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	return &CircuitBreaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange sets a callback invoked, in its own goroutine, on every
// state change.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.onStateChange = fn
}

// Allow reports whether a call may proceed, returning ErrCircuitOpen if not.
// Every allowed call must be followed by exactly one of RecordSuccess,
// RecordFailure or Release, passed the generation Allow returned.
func (cb *CircuitBreaker) Allow() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return cb.generation, nil

	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cfg.Timeout {
			return 0, ErrCircuitOpen
		}

		cb.transitionTo(StateHalfOpen)
		cb.inFlight = 1

		return cb.generation, nil

	case StateHalfOpen:
		if cb.inFlight >= cb.cfg.HalfOpenLimit {
			return 0, ErrCircuitOpen
		}

		cb.inFlight++

		return cb.generation, nil

	default:
		return 0, ErrCircuitOpen
	}
}

// RecordSuccess records a successful call admitted in generation gen.
func (cb *CircuitBreaker) RecordSuccess(gen uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.inFlight--
		cb.successes++

		if cb.successes >= cb.cfg.HalfOpenLimit {
			cb.transitionTo(StateClosed)
		}
	}
}

// RecordFailure records a failed call admitted in generation gen.
func (cb *CircuitBreaker) RecordFailure(gen uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failures++

		if cb.failures >= cb.cfg.MaxFailures {
			cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		cb.inFlight--
		cb.transitionTo(StateOpen)
	}
}

// Release ends an allowed call that says nothing about store health, such
// as one abandoned because its caller went away.
func (cb *CircuitBreaker) Release(gen uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen == cb.generation && cb.state == StateHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// transitionTo changes state and resets the counters. Must be called with
// the lock held.
func (cb *CircuitBreaker) transitionTo(next State) {
	if cb.state == next {
		return
	}

	prev := cb.state
	cb.state = next
	cb.generation++
	cb.failures = 0
	cb.successes = 0

	if next != StateHalfOpen {
		cb.inFlight = 0
	}

	if cb.onStateChange != nil {
		go cb.onStateChange(prev, next)
	}
}
