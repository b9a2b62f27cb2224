// Package circuitbreaker fast-fails calls to a dependency that keeps
// failing. VendorHub runs one in front of the Redis session store: once
// Redis has failed repeatedly, login and refresh return immediately
// instead of stacking up network timeouts.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by callers when the breaker refuses a request.
var ErrOpen = errors.New("circuit open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker is a three-state circuit breaker. Closed counts consecutive
// failures and opens after maxFailures. Open refuses everything until the
// cooldown elapses, then probes in half-open: minSuccesses consecutive
// successes close it again, any failure re-opens it.
type Breaker struct {
	name         string
	maxFailures  int
	minSuccesses int
	cooldown     time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

func New(name string, maxFailures, minSuccesses int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		name:         name,
		maxFailures:  maxFailures,
		minSuccesses: minSuccesses,
		cooldown:     cooldown,
		logger:       logger,
		state:        Closed,
	}
}

// Allow reports whether a request may proceed. An open breaker whose
// cooldown has elapsed moves to half-open and lets the request through as
// a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(HalfOpen)
	}
	return true
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.minSuccesses {
			b.transition(Closed)
		}
	}
}

// Failure records a failed call. A half-open probe failure re-opens the
// breaker immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.maxFailures {
			b.transition(Open)
		}
	case HalfOpen:
		b.transition(Open)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == Open {
		b.openedAt = time.Now()
	}
	b.logger.Warn("circuit state change",
		slog.String("breaker", b.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}
