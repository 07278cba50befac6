package resilience

import (
	"errors"
	"log"
	"sync"
	"time"
)

// State is the breaker's position in its lifecycle.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a single probe call is allowed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker trips open after failThreshold consecutive failures and
// rejects calls until openTimeout has elapsed, then lets a probe call
// through. A successful probe closes the breaker; a failed one reopens it.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	failThreshold int
	openTimeout   time.Duration
	openedAt      time.Time
}

func NewCircuitBreaker(failThreshold int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failThreshold: failThreshold,
		openTimeout:   openTimeout,
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrCircuitOpen without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

// allow decides whether a call may proceed, moving an expired open breaker
// to half-open.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if time.Since(cb.openedAt) <= cb.openTimeout {
		return false
	}
	cb.transition(StateHalfOpen)
	return true
}

// record folds a call result into the failure count and state.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.transition(StateClosed)
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.failThreshold {
		cb.openedAt = time.Now()
		cb.transition(StateOpen)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(next State) {
	if cb.state == next {
		return
	}
	log.Printf("[Resilience] Circuit breaker %s -> %s", cb.state, next)
	cb.state = next
}

// CurrentState reports the breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
