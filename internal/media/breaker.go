package media

import (
	"errors"
	"sync"
	"time"
)

// BreakerState represents the state of a tool breaker
type BreakerState int

const (
	// BreakerClosed lets calls through
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the reset timeout elapses
	BreakerOpen
	// BreakerHalfOpen lets one trial call through
	BreakerHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrToolUnavailable is returned while the breaker is open
var ErrToolUnavailable = errors.New("media tool unavailable, too many recent failures")

// Breaker stops invoking an external tool after repeated tool-side failures.
// Failures caused by the input file do not count against it.
type Breaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	state            BreakerState
	failures         int
	lastFailureTime  time.Time
	now              func() time.Time
	mu               sync.Mutex
}

// NewBreaker creates a breaker that opens after failureThreshold consecutive tool failures
func NewBreaker(failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            BreakerClosed,
		now:              time.Now,
	}
}

// Call runs fn unless the breaker is open
func (b *Breaker) Call(fn func() error) error {
	if !b.CanAttempt() {
		return ErrToolUnavailable
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case err == nil:
		b.recordSuccessLocked()
	case isInputError(err):
		// The tool ran fine, the file was bad
		b.recordSuccessLocked()
	default:
		b.recordFailureLocked()
	}
	return err
}

// State returns the current state, moving open to half-open once the timeout has elapsed
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.now().Sub(b.lastFailureTime) >= b.resetTimeout {
		b.state = BreakerHalfOpen
		b.failures = 0
	}
	return b.state
}

// CanAttempt reports whether a call would be let through
func (b *Breaker) CanAttempt() bool {
	return b.State() != BreakerOpen
}

// Failures returns the current consecutive failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.lastFailureTime = time.Time{}
}

func (b *Breaker) recordSuccessLocked() {
	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
	}
}

func (b *Breaker) recordFailureLocked() {
	b.failures++
	b.lastFailureTime = b.now()

	if b.state == BreakerHalfOpen || b.failures >= b.failureThreshold {
		b.state = BreakerOpen
	}
}
